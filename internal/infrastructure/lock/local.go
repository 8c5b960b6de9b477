// Package lock serializes writers per application, in process or across processes via Redis.
package lock

import (
	"context"
	"sync"
)

// LocalLocker is a keyed mutex. Entries are dropped once no caller holds or waits on them.
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	slot chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{keys: make(map[string]*keyLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, applicationID string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.keys[applicationID]
	if !ok {
		kl = &keyLock{slot: make(chan struct{}, 1)}
		l.keys[applicationID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(applicationID, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.slot
			l.release(applicationID, kl)
		})
	}, nil
}

func (l *LocalLocker) release(applicationID string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.keys, applicationID)
	}
}
