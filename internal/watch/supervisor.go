// Package watch supervises long-running watch sessions.
//
// Each session runs one Worker on its own goroutine. Shutdown first cancels every session's
// context, then forces the stragglers with Worker.Abort once the grace period has elapsed, and
// only returns when every session has acknowledged.
package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yacobolo/stylebuild/internal/logger"
)

// State is the lifecycle state of a session.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateCancelled || s == StateFailed
}

// Worker is a blocking unit of watch work.
type Worker interface {
	// Run blocks until ctx is cancelled or the work fails.
	Run(ctx context.Context) error
	// Abort forces a blocked Run to return.
	Abort() error
}

// Session is one supervised worker.
type Session struct {
	ID   string
	Name string

	worker Worker
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	state     State
	err       error
	cancelled bool
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure of a failed session.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the session's worker has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) requestCancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.cancelled:
		s.state = StateCancelled
	case err != nil:
		s.state = StateFailed
		s.err = err
	default:
		s.state = StateStopped
	}
}

// Supervisor owns a set of sessions.
type Supervisor struct {
	log *logger.Logger

	mu       sync.Mutex
	sessions []*Session
}

// NewSupervisor creates an empty supervisor.
func NewSupervisor(log *logger.Logger) *Supervisor {
	return &Supervisor{log: log}
}

// Start launches worker in a new session derived from ctx.
func (s *Supervisor) Start(ctx context.Context, name string, worker Worker) *Session {
	ctx, cancel := context.WithCancel(ctx)
	sess := &Session{
		ID:     uuid.NewString(),
		Name:   name,
		worker: worker,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StateIdle,
	}

	s.mu.Lock()
	s.sessions = append(s.sessions, sess)
	s.mu.Unlock()

	sess.mu.Lock()
	sess.state = StateRunning
	sess.mu.Unlock()

	go func() {
		defer close(sess.done)
		defer cancel()

		s.log.Debugf("Watch session %s started for %s", sess.ID, name)
		err := worker.Run(ctx)
		if ctx.Err() != nil && !sess.isCancelled() {
			// The parent context ended; treat it as a requested cancel.
			sess.mu.Lock()
			sess.cancelled = true
			sess.mu.Unlock()
		}
		sess.finish(err)
		if sess.State() == StateFailed {
			s.log.Errorf("Watch session for %s failed: %v", name, err)
		}
		s.log.Debugf("Watch session %s for %s is %s", sess.ID, name, sess.State())
	}()

	return sess
}

func (s *Session) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Sessions returns the sessions in start order.
func (s *Supervisor) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Session(nil), s.sessions...)
}

// Wait blocks until every session has finished and returns the failures joined together.
func (s *Supervisor) Wait() error {
	var errs []error
	for _, sess := range s.Sessions() {
		<-sess.done
		if err := sess.Err(); err != nil {
			errs = append(errs, fmt.Errorf("watch %s: %w", sess.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown cancels every session. Sessions still running after grace are aborted. Shutdown
// returns once all sessions have finished.
func (s *Supervisor) Shutdown(grace time.Duration) error {
	sessions := s.Sessions()
	for _, sess := range sessions {
		sess.requestCancel()
	}

	deadline := time.NewTimer(grace)
	defer deadline.Stop()

	expired := false
	var pending []*Session
	for _, sess := range sessions {
		if expired {
			pending = append(pending, sess)
			continue
		}
		select {
		case <-sess.done:
		case <-deadline.C:
			expired = true
			pending = append(pending, sess)
		}
	}

	for _, sess := range pending {
		select {
		case <-sess.done:
			continue
		default:
		}
		s.log.Warnf("Watch session for %s did not stop within %s, aborting", sess.Name, grace)
		if err := sess.worker.Abort(); err != nil {
			s.log.Warnf("Aborting watch session for %s: %v", sess.Name, err)
		}
	}

	return s.Wait()
}
