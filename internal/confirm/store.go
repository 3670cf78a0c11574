// Package confirm holds proceed/abort decisions keyed by record id,
// bridging the inbound confirmation callback and the wizard run blocked
// on it.
package confirm

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrTimeout reports that no decision arrived within the deadline.
var ErrTimeout = errors.New("timed out waiting for confirmation")

type entry struct {
	decided   bool
	proceed   bool
	decidedAt time.Time
	signal    chan struct{}
}

// Store is a mutex-guarded decision table. One handler writes a decision,
// one waiting run consumes it; racing writes for the same id are resolved
// latest-write-wins. Unconsumed decisions expire after the ttl.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	logger  *zap.Logger
}

// NewStore builds a store whose unconsumed decisions live for ttl.
func NewStore(ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		logger:  logger,
	}
}

func (s *Store) ensureLocked(recordID string) *entry {
	e, ok := s.entries[recordID]
	if !ok {
		e = &entry{signal: make(chan struct{}, 1)}
		s.entries[recordID] = e
	}
	return e
}

// pruneLocked drops decisions nobody consumed within the ttl.
func (s *Store) pruneLocked(now time.Time) {
	for id, e := range s.entries {
		if e.decided && now.Sub(e.decidedAt) > s.ttl {
			delete(s.entries, id)
		}
	}
}

// Put records a proceed/abort decision for the record. A later Put for the
// same id overwrites an earlier one.
func (s *Store) Put(recordID string, proceed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(time.Now())

	e := s.ensureLocked(recordID)
	e.decided = true
	e.proceed = proceed
	e.decidedAt = time.Now()

	select {
	case e.signal <- struct{}{}:
	default:
	}

	s.logger.Info("Confirmation decision recorded.",
		zap.String("record_id", recordID), zap.Bool("proceed", proceed))
}

// Await blocks until a decision for the record arrives, consuming it, or
// until the timeout or the context expires. The timeout failure mode is
// deterministic: exactly ErrTimeout at the configured duration.
func (s *Store) Await(ctx context.Context, recordID string, timeout time.Duration) (bool, error) {
	s.mu.Lock()
	e := s.ensureLocked(recordID)
	if e.decided {
		proceed := e.proceed
		delete(s.entries, recordID)
		s.mu.Unlock()
		return proceed, nil
	}
	signal := e.signal
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-signal:
			s.mu.Lock()
			if e.decided {
				proceed := e.proceed
				delete(s.entries, recordID)
				s.mu.Unlock()
				return proceed, nil
			}
			s.mu.Unlock()
		case <-timer.C:
			s.mu.Lock()
			delete(s.entries, recordID)
			s.mu.Unlock()
			return false, ErrTimeout
		case <-ctx.Done():
			s.mu.Lock()
			delete(s.entries, recordID)
			s.mu.Unlock()
			return false, ctx.Err()
		}
	}
}

// Pending reports whether an undelivered decision exists for the record.
func (s *Store) Pending(recordID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[recordID]
	return ok && e.decided
}
