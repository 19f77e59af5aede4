// Package conversation implements the generic multi-step dialog executor.
//
// A Flow is an ordered list of steps; each step asks one question, validates
// the raw answer and writes the result into the flow's scratch data. The
// last valid answer triggers the flow's commit action. Every user has at
// most one conversation at a time; starting a new flow implicitly abandons
// an in-flight one. That is a product decision, expressed in exactly one
// place (Engine.Start), not a side effect.
package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// Kind names a flow.
type Kind string

const (
	KindRegister      Kind = "register"
	KindLogin         Kind = "login"
	KindAddSection    Kind = "add_section"
	KindEditSection   Kind = "edit_section"
	KindDeleteSection Kind = "delete_section"
)

// Step is one question within a flow.
type Step struct {
	// Field is the scratch key the validated answer is stored under.
	Field string

	// Prompt is the question the caller should render.
	Prompt string

	// Secret hints the transport to read the answer without echo.
	Secret bool

	// Validate checks and transforms the raw answer. Returning an error
	// wrapping common.ErrValidation keeps the flow on the same step; the
	// error carries the specific reason for the caller to render.
	// Validators may read previously collected scratch fields.
	Validate func(ctx context.Context, userID int64, scratch map[string]string, answer string) (string, error)
}

// Outcome is the result of a completed flow.
type Outcome struct {
	Message string
	// Payload optionally carries a flow-specific result (e.g. the created
	// section) for the transport to render.
	Payload any
}

// Flow is a complete dialog definition.
type Flow struct {
	Kind Kind

	// RequiresLogin gates the flow on an active session. The guard is
	// re-checked on entry, on every step transition and before commit.
	RequiresLogin bool

	Steps []Step

	// Commit runs after the last step. It receives the collected scratch
	// data and performs the flow's side effect.
	Commit func(ctx context.Context, userID int64, scratch map[string]string) (*Outcome, error)
}

// Prompt is the next question to render.
type Prompt struct {
	Text   string
	Secret bool
}

// Reply is the result of feeding an answer to an active flow.
type Reply struct {
	// Done is true when the flow committed; Outcome is then set.
	Done    bool
	Outcome *Outcome
	// Prompt is the next question when Done is false.
	Prompt *Prompt
}

// state is one user's in-flight conversation. Step transitions lock st.mu so
// two concurrent intents for the same user never observe a half-applied
// transition.
type state struct {
	mu      sync.Mutex
	flow    *Flow
	step    int
	scratch map[string]string
	touched time.Time
}

// Engine executes flows, one independent conversation per user.
type Engine struct {
	flows  map[Kind]*Flow
	guard  func(userID int64) bool
	idle   time.Duration
	logger logging.Logger

	mu     sync.Mutex
	states map[int64]*state
}

// NewEngine returns an Engine. guard reports whether a user has an active
// session (used for login-gated flows). idle is the optional idle timeout
// for stalled conversations; 0 disables expiry.
func NewEngine(guard func(userID int64) bool, idle time.Duration, logger logging.Logger) *Engine {
	return &Engine{
		flows:  make(map[Kind]*Flow),
		guard:  guard,
		idle:   idle,
		logger: logger,
		states: make(map[int64]*state),
	}
}

// RegisterFlow adds a flow definition. Flows are registered at construction
// time; re-registering a kind replaces it.
func (e *Engine) RegisterFlow(f *Flow) {
	e.flows[f.Kind] = f
}

// Start enters a flow for userID and returns the first step's prompt.
// params pre-seeds scratch data supplied at entry (e.g. the pre-selected
// section id for edit/delete flows).
//
// Entering a login-gated flow without an active session fails with
// common.ErrUnauthenticated and produces no state. Starting any flow while
// another is in flight silently abandons the old one.
func (e *Engine) Start(ctx context.Context, userID int64, kind Kind, params map[string]string) (*Prompt, error) {
	flow, ok := e.flows[kind]
	if !ok {
		return nil, fmt.Errorf("unknown flow %q", kind)
	}

	if flow.RequiresLogin && !e.guard(userID) {
		return nil, common.ErrUnauthenticated
	}

	scratch := make(map[string]string, len(params)+len(flow.Steps))
	for k, v := range params {
		scratch[k] = v
	}

	st := &state{flow: flow, scratch: scratch, touched: time.Now()}

	e.mu.Lock()
	if prev, ok := e.states[userID]; ok {
		e.logger.Debug(ctx, "abandoning in-flight conversation",
			"user_id", userID, "abandoned", prev.flow.Kind, "new", kind)
	}
	e.states[userID] = st
	e.mu.Unlock()

	first := flow.Steps[0]
	return &Prompt{Text: first.Prompt, Secret: first.Secret}, nil
}

// Answer feeds the raw answer to userID's active conversation.
//
// An invalid answer leaves the step counter untouched and returns the
// validator's error (wrapping common.ErrValidation) so the caller can
// re-prompt. A valid answer advances exactly one step; answering the last
// step runs the flow's commit and clears the conversation.
func (e *Engine) Answer(ctx context.Context, userID int64, answer string) (*Reply, error) {
	st, err := e.current(userID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	// The slot may have been replaced (implicit abandon) between lookup and
	// lock; a stale state must not advance.
	if !e.isCurrent(userID, st) {
		return nil, common.ErrNoActiveFlow
	}

	if e.expired(st) {
		e.drop(userID, st)
		return nil, fmt.Errorf("%w: conversation expired", common.ErrNoActiveFlow)
	}

	if st.flow.RequiresLogin && !e.guard(userID) {
		e.drop(userID, st)
		return nil, common.ErrUnauthenticated
	}

	step := st.flow.Steps[st.step]

	value := answer
	if step.Validate != nil {
		value, err = step.Validate(ctx, userID, st.scratch, answer)
		if err != nil {
			// same step, no advance; caller re-prompts with the reason
			return nil, err
		}
	}

	st.scratch[step.Field] = value
	st.step++
	st.touched = time.Now()

	if st.step < len(st.flow.Steps) {
		next := st.flow.Steps[st.step]
		return &Reply{Prompt: &Prompt{Text: next.Prompt, Secret: next.Secret}}, nil
	}

	// Terminal step answered: the flow ends here whether or not the commit
	// succeeds; there are no automatic retries.
	e.drop(userID, st)

	if st.flow.RequiresLogin && !e.guard(userID) {
		return nil, common.ErrUnauthenticated
	}

	outcome, err := st.flow.Commit(ctx, userID, st.scratch)
	if err != nil {
		return nil, err
	}

	return &Reply{Done: true, Outcome: outcome}, nil
}

// Cancel discards userID's conversation, if any, and reports whether one
// existed.
func (e *Engine) Cancel(userID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.states[userID]; !ok {
		return false
	}
	delete(e.states, userID)
	return true
}

// Active returns the kind and step ordinal of userID's conversation.
func (e *Engine) Active(userID int64) (Kind, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[userID]
	if !ok {
		return "", 0, false
	}
	return st.flow.Kind, st.step, true
}

func (e *Engine) current(userID int64) (*state, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[userID]
	if !ok {
		return nil, common.ErrNoActiveFlow
	}
	return st, nil
}

func (e *Engine) isCurrent(userID int64, st *state) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[userID] == st
}

func (e *Engine) drop(userID int64, st *state) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.states[userID] == st {
		delete(e.states, userID)
	}
}

func (e *Engine) expired(st *state) bool {
	return e.idle > 0 && time.Since(st.touched) > e.idle
}
