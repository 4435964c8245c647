// Package refine implements the query refinement state machine: a generated
// candidate is reviewed by the user, who can execute, explain, edit,
// regenerate, revisit history, or cancel before anything runs against the
// data source. The transition logic is pure session-owned state; all I/O
// happens through the injected collaborators.
package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kustoscope/internal/logging"
	"kustoscope/internal/types"
)

// EditReasoning is the fixed reasoning attached to manually edited
// candidates. The matching 0.5 confidence marks the query as unverified.
const EditReasoning = "Manually edited query"

const editConfidence = 0.5

// State is the refinement session state.
type State string

const (
	StateReviewing State = "reviewing" // a candidate awaits a user action
	StateExecuted  State = "executed"  // terminal: query ran successfully
	StateCancelled State = "cancelled" // terminal: no result
)

// Action is a user-chosen step from the review menu.
type Action string

const (
	ActionExecute    Action = "execute"
	ActionExplain    Action = "explain"
	ActionRegenerate Action = "regenerate"
	ActionEdit       Action = "edit"
	ActionHistory    Action = "history"
	ActionCancel     Action = "cancel"
)

var (
	// ErrRegenerationExhausted is returned when regenerate is invoked past
	// the configured ceiling. Reaching this error is a programming error in
	// the caller: the action is withheld from Available() at the ceiling.
	ErrRegenerationExhausted = errors.New("regeneration attempts exhausted")

	// ErrSessionClosed is returned for any action on a terminal session.
	ErrSessionClosed = errors.New("refinement session is closed")

	// ErrUnknownAction is returned for actions outside the Action enum.
	ErrUnknownAction = errors.New("unknown action")
)

// GenerationError wraps a recoverable generator failure. The session keeps
// the previous candidate and stays in Reviewing; callers surface the message
// and re-present the menu.
type GenerationError struct {
	Op  Action
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsRecoverable reports whether an Act error leaves the session usable.
func IsRecoverable(err error) bool {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return true
	}
	return errors.Is(err, ErrRegenerationExhausted) || errors.Is(err, ErrUnknownAction)
}

// QueryGenerator is the generation collaborator contract. Mirrors
// provider.Generator to keep this package free of provider imports.
type QueryGenerator interface {
	Generate(ctx context.Context, question, schema string) (*types.Candidate, error)
	Regenerate(ctx context.Context, question string, rc types.RegenerationContext, schema string) (*types.Candidate, error)
	Explain(ctx context.Context, query string, opts types.ExplainOptions) (string, error)
}

// Executor is the data-source collaborator contract.
type Executor interface {
	Execute(ctx context.Context, query string) (*types.ExecutionResult, error)
}

// Options tunes the refinement policy. Zero values are honored: a ceiling
// of 0 disables regeneration outright and a threshold of 0 disables the
// advisory warning. Negative values select the built-in defaults.
type Options struct {
	// MaxRegenerationAttempts caps regenerate actions per session.
	// 0 disables regeneration; negative means the default of 3.
	MaxRegenerationAttempts int

	// ConfidenceThreshold triggers the advisory low-confidence warning.
	// It never blocks execution. 0 disables the warning; negative means
	// the default of 0.7.
	ConfidenceThreshold float64

	// Explain carries the explanation tone configuration.
	Explain types.ExplainOptions

	// Schema is the rendered schema catalog passed to the generator.
	Schema string
}

func (o *Options) applyDefaults() {
	if o.MaxRegenerationAttempts < 0 {
		o.MaxRegenerationAttempts = 3
	}
	if o.ConfidenceThreshold < 0 {
		o.ConfidenceThreshold = 0.7
	}
}

// Outcome is the observable result of one Act call.
type Outcome struct {
	State         State
	Candidate     *types.Candidate
	Result        *types.ExecutionResult
	ExecutionTime time.Duration
	Explanation   string
	Records       []types.ActionRecord

	// Warning is the advisory low-confidence message, empty when the current
	// candidate clears the threshold or the session left Reviewing.
	Warning string
}

// Session drives one refinement loop. It is owned by a single goroutine;
// no internal locking is needed or provided.
type Session struct {
	id        string
	question  string
	generator QueryGenerator
	executor  Executor
	opts      Options

	state     State
	candidate *types.Candidate
	history   []types.ActionRecord
	attempts  int
	log       *logging.Logger
}

// Start creates a session and requests the initial candidate. The question
// is immutable for the life of the session.
func Start(ctx context.Context, generator QueryGenerator, executor Executor, question string, opts Options) (*Session, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question")
	}
	opts.applyDefaults()

	s := &Session{
		id:        uuid.NewString(),
		question:  question,
		generator: generator,
		executor:  executor,
		opts:      opts,
		state:     StateReviewing,
		log:       logging.Get(logging.CategorySession),
	}

	cand, err := generator.Generate(ctx, question, opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("initial generation failed: %w", err)
	}
	s.candidate = cand
	s.record(types.ActionGenerated, cand.Reasoning)
	s.log.Info("session %s started: confidence=%.2f", s.id, cand.Confidence)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Question returns the immutable natural-language question.
func (s *Session) Question() string { return s.question }

// State returns the current session state.
func (s *Session) State() State { return s.state }

// Candidate returns the current candidate, nil after cancellation is the
// only case a caller should not rely on.
func (s *Session) Candidate() *types.Candidate { return s.candidate }

// Attempts returns the number of regenerations consumed.
func (s *Session) Attempts() int { return s.attempts }

// History returns a copy of the append-only action trail.
func (s *Session) History() []types.ActionRecord {
	out := make([]types.ActionRecord, len(s.history))
	copy(out, s.history)
	return out
}

// Available lists the actions the review menu may offer. Regenerate drops
// out once the attempt ceiling is reached; terminal states offer nothing.
func (s *Session) Available() []Action {
	if s.state != StateReviewing {
		return nil
	}
	actions := []Action{ActionExecute, ActionExplain}
	if s.attempts < s.opts.MaxRegenerationAttempts {
		actions = append(actions, ActionRegenerate)
	}
	return append(actions, ActionEdit, ActionHistory, ActionCancel)
}

// Act applies one action to the session.
//
// Error semantics follow the recovery taxonomy: generator failures come back
// as *GenerationError with the candidate unchanged; executor failures
// propagate verbatim and close the session; validation problems (empty edit,
// exhausted budget) are no-ops or sentinel errors, never state corruption.
func (s *Session) Act(ctx context.Context, action Action, payload string) (Outcome, error) {
	if s.state != StateReviewing {
		return Outcome{State: s.state}, ErrSessionClosed
	}

	switch action {
	case ActionExecute:
		return s.execute(ctx)
	case ActionExplain:
		return s.explain(ctx)
	case ActionRegenerate:
		return s.regenerate(ctx)
	case ActionEdit:
		return s.edit(payload)
	case ActionHistory:
		return s.reviewing(Outcome{Records: s.History()}), nil
	case ActionCancel:
		s.state = StateCancelled
		s.candidate = nil
		s.log.Info("session %s cancelled", s.id)
		return Outcome{State: StateCancelled}, nil
	default:
		return s.reviewing(Outcome{}), fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

func (s *Session) execute(ctx context.Context) (Outcome, error) {
	start := time.Now()
	result, err := s.executor.Execute(ctx, s.candidate.Query)
	if err != nil {
		// No meaningful review state remains after a failed execution;
		// the session ends and the cause propagates verbatim.
		s.state = StateCancelled
		s.log.Error("session %s execution failed: %v", s.id, err)
		return Outcome{State: StateCancelled}, err
	}
	elapsed := time.Since(start)

	s.record(types.ActionExecuted, "")
	s.state = StateExecuted
	s.log.Info("session %s executed: rows=%d elapsed=%s", s.id, result.TotalRows(), elapsed)

	return Outcome{
		State:         StateExecuted,
		Candidate:     s.candidate,
		Result:        result,
		ExecutionTime: elapsed,
	}, nil
}

func (s *Session) explain(ctx context.Context) (Outcome, error) {
	explanation, err := s.generator.Explain(ctx, s.candidate.Query, s.opts.Explain)
	if err != nil {
		s.log.Warn("session %s explain failed: %v", s.id, err)
		return s.reviewing(Outcome{}), &GenerationError{Op: ActionExplain, Err: err}
	}

	// Explanation is side information, not a new candidate.
	s.record(types.ActionExplained, "")
	return s.reviewing(Outcome{Explanation: explanation}), nil
}

func (s *Session) regenerate(ctx context.Context) (Outcome, error) {
	if s.attempts >= s.opts.MaxRegenerationAttempts {
		return s.reviewing(Outcome{}), ErrRegenerationExhausted
	}

	rc := types.RegenerationContext{
		PreviousQuery:     s.candidate.Query,
		PreviousReasoning: s.candidate.Reasoning,
		Attempt:           s.attempts + 1,
	}
	cand, err := s.generator.Regenerate(ctx, s.question, rc, s.opts.Schema)
	if err != nil {
		// Previous candidate stays in place; the failed attempt does not
		// consume budget.
		s.log.Warn("session %s regenerate failed: %v", s.id, err)
		return s.reviewing(Outcome{}), &GenerationError{Op: ActionRegenerate, Err: err}
	}

	s.attempts++
	s.candidate = cand
	s.record(types.ActionRegenerated, cand.Reasoning)
	s.log.Info("session %s regenerated: attempt=%d confidence=%.2f", s.id, s.attempts, cand.Confidence)
	return s.reviewing(Outcome{}), nil
}

func (s *Session) edit(replacement string) (Outcome, error) {
	trimmed := strings.TrimSpace(replacement)
	if trimmed == "" || trimmed == strings.TrimSpace(s.candidate.Query) {
		// Empty or unchanged edits are silent no-ops: no transition,
		// no history record.
		return s.reviewing(Outcome{}), nil
	}

	s.candidate = &types.Candidate{
		Query:      trimmed,
		Confidence: editConfidence,
		Reasoning:  EditReasoning,
	}
	s.record(types.ActionEdited, EditReasoning)
	s.log.Info("session %s edited", s.id)
	return s.reviewing(Outcome{}), nil
}

// SelectHistory reinstates the query of a prior record, re-entering review
// with a candidate reconstructed from the recorded query and confidence.
func (s *Session) SelectHistory(index int) (Outcome, error) {
	if s.state != StateReviewing {
		return Outcome{State: s.state}, ErrSessionClosed
	}
	if index < 0 || index >= len(s.history) {
		return s.reviewing(Outcome{}), fmt.Errorf("history index %d out of range [0,%d)", index, len(s.history))
	}

	rec := s.history[index]
	if rec.Query == s.candidate.Query {
		return s.reviewing(Outcome{}), nil
	}

	s.candidate = &types.Candidate{
		Query:      rec.Query,
		Confidence: rec.Confidence,
		Reasoning:  fmt.Sprintf("Restored from history (%s)", rec.Action),
	}
	s.record(types.ActionEdited, "Restored from history")
	return s.reviewing(Outcome{}), nil
}

// reviewing stamps the shared Reviewing fields onto an outcome.
func (s *Session) reviewing(o Outcome) Outcome {
	o.State = StateReviewing
	o.Candidate = s.candidate
	o.Warning = s.warning()
	return o
}

// warning returns the advisory low-confidence message, or "".
func (s *Session) warning() string {
	if s.candidate == nil || s.candidate.Confidence >= s.opts.ConfidenceThreshold {
		return ""
	}
	return fmt.Sprintf("low confidence (%.0f%%): review the query carefully before executing",
		s.candidate.Confidence*100)
}

func (s *Session) record(action types.ActionKind, reason string) {
	s.history = append(s.history, types.ActionRecord{
		Query:      s.candidate.Query,
		Timestamp:  time.Now(),
		Confidence: s.candidate.Confidence,
		Action:     action,
		Reason:     reason,
	})
}
