// Package nats carries application events over NATS subjects named <prefix>.<event kind>.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/infrastructure/resilience"
)

const (
	DefaultSubjectPrefix = "irrrl"
	analysisQueueGroup   = "irrrl-analysis"
)

type Options struct {
	Name                 string
	SubjectPrefix        string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	Executor             *resilience.Executor
}

// Bus publishes domain events and delivers submitted applications to the analysis worker.
type Bus struct {
	conn     *nats.Conn
	prefix   string
	executor *resilience.Executor
}

func Connect(url string, options Options) (*Bus, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	name := options.Name
	if name == "" {
		name = "irrrl-engine"
	}

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{
		conn:     conn,
		prefix:   normalizePrefix(options.SubjectPrefix),
		executor: options.Executor,
	}, nil
}

func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return DefaultSubjectPrefix
	}
	return prefix
}

func subjectFor(prefix string, kind domain.EventKind) string {
	return prefix + "." + string(kind)
}

func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	subject := subjectFor(b.prefix, event.Kind)

	call := func(context.Context) error {
		if err := b.conn.Publish(subject, payload); err != nil {
			return wrapTemporaryIfNeeded(err)
		}
		return nil
	}
	if b.executor != nil {
		return b.executor.Execute(ctx, "nats.publish", call)
	}
	return call(ctx)
}

// SubscribeSubmitted blocks until ctx is done, then drains the subscription.
func (b *Bus) SubscribeSubmitted(ctx context.Context, handler func(context.Context, domain.Event) error) error {
	subject := subjectFor(b.prefix, domain.EventApplicationSubmitted)
	sub, err := b.conn.QueueSubscribe(subject, analysisQueueGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		deliver(ctx, msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	slog.Info("nats_subscribed", "subject", subject, "queue_group", analysisQueueGroup)

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func deliver(ctx context.Context, data []byte, handler func(context.Context, domain.Event) error) {
	var event domain.Event
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Warn("event_decode_failed", "error", err)
		return
	}
	if event.ApplicationID == "" {
		slog.Warn("event_decode_failed", "event_id", event.ID, "error", "missing application_id")
		return
	}
	if err := handler(ctx, event); err != nil {
		slog.Warn("event_handler_failed", "event_id", event.ID, "application_id", event.ApplicationID, "error", err)
	}
}
