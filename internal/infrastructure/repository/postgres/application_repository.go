package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
)

type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ApplicationRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025052001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS irrrl_applications (
	id TEXT PRIMARY KEY,
	number TEXT NOT NULL UNIQUE,
	application_type TEXT NOT NULL,
	status TEXT NOT NULL,
	borrower JSONB NOT NULL,
	property JSONB,
	current_loan JSONB,
	requested JSONB NOT NULL,
	total_closing_costs NUMERIC(14,2) NOT NULL DEFAULT 0,
	total_loan_costs NUMERIC(14,2) NOT NULL DEFAULT 0,
	ntb_result JSONB,
	ntb_calculated_at TIMESTAMPTZ,
	eligibility_verified BOOLEAN NOT NULL DEFAULT FALSE,
	eligibility_notes TEXT NOT NULL DEFAULT '',
	key_dates JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	version INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS irrrl_status_history (
	id BIGSERIAL PRIMARY KEY,
	application_id TEXT NOT NULL REFERENCES irrrl_applications(id) ON DELETE CASCADE,
	from_status TEXT NOT NULL,
	to_status TEXT NOT NULL,
	changed_at TIMESTAMPTZ NOT NULL,
	actor TEXT NOT NULL DEFAULT '',
	note TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_irrrl_applications_status ON irrrl_applications(status, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_irrrl_status_history_application ON irrrl_status_history(application_id, id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// applicationColumns holds the encoded JSONB payloads of one aggregate.
type applicationColumns struct {
	borrower    []byte
	property    []byte
	currentLoan []byte
	requested   []byte
	ntb         []byte
	dates       []byte
}

func encodeApplication(app *domain.Application) (applicationColumns, error) {
	var (
		cols applicationColumns
		err  error
	)
	if cols.borrower, err = json.Marshal(app.Borrower); err != nil {
		return cols, fmt.Errorf("marshal borrower: %w", err)
	}
	if cols.requested, err = json.Marshal(app.Requested); err != nil {
		return cols, fmt.Errorf("marshal requested loan: %w", err)
	}
	if cols.dates, err = json.Marshal(app.Dates); err != nil {
		return cols, fmt.Errorf("marshal key dates: %w", err)
	}
	if app.Property != nil {
		if cols.property, err = json.Marshal(app.Property); err != nil {
			return cols, fmt.Errorf("marshal property: %w", err)
		}
	}
	if app.CurrentLoan != nil {
		if cols.currentLoan, err = json.Marshal(app.CurrentLoan); err != nil {
			return cols, fmt.Errorf("marshal current loan: %w", err)
		}
	}
	if app.NTB != nil {
		if cols.ntb, err = json.Marshal(app.NTB); err != nil {
			return cols, fmt.Errorf("marshal ntb result: %w", err)
		}
	}
	return cols, nil
}

// nullableJSON keeps absent payloads as SQL NULL.
func nullableJSON(raw []byte) any {
	if raw == nil {
		return nil
	}
	return raw
}

func (r *ApplicationRepository) Create(ctx context.Context, app *domain.Application) error {
	cols, err := encodeApplication(app)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO irrrl_applications (
	id, number, application_type, status, borrower, property, current_loan, requested,
	total_closing_costs, total_loan_costs, ntb_result, ntb_calculated_at,
	eligibility_verified, eligibility_notes, key_dates, created_at, updated_at, version
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,1)
`,
		app.ID, app.Number, string(app.Type), string(app.Status), cols.borrower, nullableJSON(cols.property),
		nullableJSON(cols.currentLoan), cols.requested, app.TotalClosingCosts, app.TotalLoanCosts,
		nullableJSON(cols.ntb), app.NTBCalculatedAt, app.EligibilityVerified, app.EligibilityNotes,
		cols.dates, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	if err := insertHistory(ctx, tx, app.ID, app.History); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create tx: %w", err)
	}
	app.Version = 1
	return nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, number, application_type, status, borrower, property, current_loan, requested,
	total_closing_costs, total_loan_costs, ntb_result, ntb_calculated_at,
	eligibility_verified, eligibility_notes, key_dates, created_at, updated_at, version
FROM irrrl_applications
WHERE id = $1
`, id)

	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrApplicationNotFound, "get application", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}

	history, err := r.listHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	app.History = history
	return app, nil
}

// Save writes the aggregate and appends records atomically, guarded by the version column.
func (r *ApplicationRepository) Save(ctx context.Context, app *domain.Application, appended []domain.StatusTransitionRecord) error {
	cols, err := encodeApplication(app)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
UPDATE irrrl_applications
SET status = $3, property = $4, current_loan = $5, requested = $6,
	total_closing_costs = $7, total_loan_costs = $8, ntb_result = $9, ntb_calculated_at = $10,
	eligibility_verified = $11, eligibility_notes = $12, key_dates = $13, updated_at = $14,
	version = version + 1
WHERE id = $1 AND version = $2
`,
		app.ID, app.Version, string(app.Status), nullableJSON(cols.property), nullableJSON(cols.currentLoan),
		cols.requested, app.TotalClosingCosts, app.TotalLoanCosts, nullableJSON(cols.ntb), app.NTBCalculatedAt,
		app.EligibilityVerified, app.EligibilityNotes, cols.dates, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application rows affected: %w", err)
	}
	if rows == 0 {
		return r.classifyMissedUpdate(ctx, tx, app)
	}

	if err := insertHistory(ctx, tx, app.ID, appended); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	app.Version++
	return nil
}

func (r *ApplicationRepository) classifyMissedUpdate(ctx context.Context, tx *sql.Tx, app *domain.Application) error {
	var current int
	err := tx.QueryRowContext(ctx, `SELECT version FROM irrrl_applications WHERE id = $1`, app.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.ErrApplicationNotFound, "save application", fmt.Errorf("id=%s", app.ID))
	}
	if err != nil {
		return fmt.Errorf("read application version: %w", err)
	}
	return domain.WrapError(
		domain.ErrConcurrentModification,
		"save application",
		fmt.Errorf("id=%s expected version %d, stored %d", app.ID, app.Version, current),
	)
}

// ListByStatus returns summaries ordered by most recent update. An empty status lists all.
func (r *ApplicationRepository) ListByStatus(ctx context.Context, status domain.ApplicationStatus, limit int) ([]domain.ApplicationSummary, error) {
	query := `
SELECT id, number, application_type, status, borrower->>'first_name', borrower->>'last_name',
	(ntb_result->>'passes_ntb')::boolean, updated_at
FROM irrrl_applications
`
	args := []any{limit}
	if status != "" {
		query += "WHERE status = $2\n"
		args = append(args, string(status))
	}
	query += "ORDER BY updated_at DESC\nLIMIT $1"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ApplicationSummary, 0)
	for rows.Next() {
		var (
			item                domain.ApplicationSummary
			kind, state         string
			firstName, lastName sql.NullString
			passes              sql.NullBool
		)
		if err := rows.Scan(&item.ID, &item.Number, &kind, &state, &firstName, &lastName, &passes, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan application summary: %w", err)
		}
		item.Type = domain.ApplicationType(kind)
		item.Status = domain.ApplicationStatus(state)
		item.BorrowerName = firstName.String + " " + lastName.String
		if passes.Valid {
			value := passes.Bool
			item.PassesNTB = &value
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return out, nil
}

func (r *ApplicationRepository) listHistory(ctx context.Context, id string) ([]domain.StatusTransitionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT from_status, to_status, changed_at, actor, note
FROM irrrl_status_history
WHERE application_id = $1
ORDER BY id ASC
`, id)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	out := make([]domain.StatusTransitionRecord, 0)
	for rows.Next() {
		var record domain.StatusTransitionRecord
		var from, to string
		if err := rows.Scan(&from, &to, &record.At, &record.Actor, &record.Note); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		record.From = domain.ApplicationStatus(from)
		record.To = domain.ApplicationStatus(to)
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}
	return out, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, applicationID string, records []domain.StatusTransitionRecord) error {
	for _, record := range records {
		_, err := tx.ExecContext(ctx, `
INSERT INTO irrrl_status_history (application_id, from_status, to_status, changed_at, actor, note)
VALUES ($1,$2,$3,$4,$5,$6)
`, applicationID, string(record.From), string(record.To), record.At, record.Actor, record.Note)
		if err != nil {
			return fmt.Errorf("insert status history: %w", err)
		}
	}
	return nil
}

type applicationScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row applicationScanner) (*domain.Application, error) {
	var (
		app                                  domain.Application
		kind, status                         string
		borrower, property, current, request []byte
		ntbRaw, dates                        []byte
		ntbAt                                sql.NullTime
	)
	err := row.Scan(
		&app.ID, &app.Number, &kind, &status, &borrower, &property, &current, &request,
		&app.TotalClosingCosts, &app.TotalLoanCosts, &ntbRaw, &ntbAt,
		&app.EligibilityVerified, &app.EligibilityNotes, &dates, &app.CreatedAt, &app.UpdatedAt, &app.Version,
	)
	if err != nil {
		return nil, err
	}
	app.Type = domain.ApplicationType(kind)
	app.Status = domain.ApplicationStatus(status)
	if ntbAt.Valid {
		at := ntbAt.Time
		app.NTBCalculatedAt = &at
	}

	if err := json.Unmarshal(borrower, &app.Borrower); err != nil {
		return nil, fmt.Errorf("unmarshal borrower: %w", err)
	}
	if err := json.Unmarshal(request, &app.Requested); err != nil {
		return nil, fmt.Errorf("unmarshal requested loan: %w", err)
	}
	if len(dates) > 0 {
		if err := json.Unmarshal(dates, &app.Dates); err != nil {
			return nil, fmt.Errorf("unmarshal key dates: %w", err)
		}
	}
	if len(property) > 0 {
		app.Property = &domain.Property{}
		if err := json.Unmarshal(property, app.Property); err != nil {
			return nil, fmt.Errorf("unmarshal property: %w", err)
		}
	}
	if len(current) > 0 {
		app.CurrentLoan = &domain.CurrentLoanSnapshot{}
		if err := json.Unmarshal(current, app.CurrentLoan); err != nil {
			return nil, fmt.Errorf("unmarshal current loan: %w", err)
		}
	}
	if len(ntbRaw) > 0 {
		app.NTB = &domain.NetTangibleBenefitResult{}
		if err := json.Unmarshal(ntbRaw, app.NTB); err != nil {
			return nil, fmt.Errorf("unmarshal ntb result: %w", err)
		}
	}
	return &app, nil
}
