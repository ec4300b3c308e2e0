package form

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/logging"
	"github.com/hpungsan/ghar/internal/store"
)

// Phase is the submission state of one add-form session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// transitions lists the moves allowed out of each phase. Close is handled
// separately because it is allowed from everywhere.
var transitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseSubmitting},
	PhaseSubmitting: {PhaseSuccess, PhaseError},
	PhaseError:      {PhaseIdle},
	PhaseSuccess:    nil,
}

// SaveFailedMessage is shown when the record could not be written.
const SaveFailedMessage = "Failed to save data. Please try again."

// Result describes a successful submission.
type Result struct {
	SessionID  string        `json:"session_id"`
	Tag        household.Tag `json:"tag"`
	Key        string        `json:"storage_key"`
	Record     store.Record  `json:"record"`
	Count      int           `json:"count"`
	CloseAfter time.Duration `json:"-"`
}

// Session is one invocation of the add form for a single domain.
type Session struct {
	ID     string
	Tag    household.Tag
	Schema household.Schema

	engine *Engine

	mu     sync.Mutex
	phase  Phase
	err    error
	result *Result
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Err returns the error of the last failed submission, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Message is the inline text to show for the last failure.
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.err == nil:
		return ""
	case errors.Is(s.err, errors.ErrValidationFailed):
		return errors.MessageOf(s.err)
	default:
		return SaveFailedMessage
	}
}

// Result returns the outcome of a successful submission.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Submit validates raw, stamps id and createdAt, and appends the record.
// It is only valid while Idle. A validation failure leaves the session Idle;
// a storage failure moves it to Error. The session stays Submitting while the
// record is written, and other Submit calls are refused until it leaves.
func (s *Session) Submit(ctx context.Context, raw household.RawInput) (*Result, error) {
	log := logging.From(ctx).With("session", s.ID, "tag", s.Tag)

	s.mu.Lock()
	if s.phase != PhaseIdle {
		defer s.mu.Unlock()
		return nil, errors.NewInvalidTransition(s.phase.String(), PhaseSubmitting.String())
	}
	entity, err := household.Normalize(s.Tag, raw)
	if err != nil {
		s.err = err
		s.mu.Unlock()
		log.Debug("form input rejected", "error", err)
		return nil, err
	}
	s.err = nil
	if err := s.moveLocked(PhaseSubmitting); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	rec, count, err := s.engine.create(ctx, s.Tag, entity)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Close may have reset the session meanwhile; the outcome is then only returned.
	closed := s.phase != PhaseSubmitting
	if err != nil {
		if !closed {
			s.err = err
			_ = s.moveLocked(PhaseError)
		}
		log.Warn("form submission failed", "error", err)
		return nil, err
	}

	result := &Result{
		SessionID:  s.ID,
		Tag:        s.Tag,
		Key:        s.Tag.StorageKey(),
		Record:     rec,
		Count:      count,
		CloseAfter: s.engine.timings.CloseAfter(),
	}
	if !closed {
		s.result = result
		_ = s.moveLocked(PhaseSuccess)
	}
	log.Info("record added", "key", s.Tag.StorageKey(), "id", rec["id"])
	return result, nil
}

// Retry returns a failed session to Idle so the user can submit again.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(PhaseIdle)
}

// Close resets the session to Idle from any phase.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseIdle
	s.err = nil
	s.result = nil
}

func (s *Session) moveLocked(to Phase) error {
	if !slices.Contains(transitions[s.phase], to) {
		return errors.NewInvalidTransition(s.phase.String(), to.String())
	}
	s.phase = to
	return nil
}
