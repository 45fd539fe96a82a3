// Package clarify owns the stateful extraction-and-clarification protocol:
// it tracks a caller's in-flight command across requests until all required
// fields are present, then hands the command off exactly once.
package clarify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/alexanderramin/hashi/internal/command"
	"github.com/alexanderramin/hashi/internal/extract"
)

// OutcomeKind classifies the result of processing one caller message.
type OutcomeKind string

const (
	// KindReady means the command passed validation and must now be
	// dispatched. The caller's pending state is already cleared; a sink
	// failure after this point does not resurrect it.
	KindReady OutcomeKind = "ready"

	// KindNeedsInput means a required field is still missing and the
	// caller was asked for it. Not an error.
	KindNeedsInput OutcomeKind = "needs_input"

	// KindFailed means extraction failed. The caller's pending state, if
	// any, is untouched.
	KindFailed OutcomeKind = "failed"
)

// Outcome is the result of Engine.Process for one caller message.
type Outcome struct {
	Kind    OutcomeKind
	Command command.Command // set when Kind == KindReady
	Field   string          // set when Kind == KindNeedsInput
	Message string          // clarification prompt when Kind == KindNeedsInput
	Err     error           // set when Kind == KindFailed
}

// Engine validates candidate commands against the required-field rules and
// runs the per-caller clarification state machine.
type Engine struct {
	extractor extract.Extractor
	store     PendingStore
	now       func() time.Time

	// Per-caller locks serialize read-modify-write on one caller's pending
	// entry. Different callers only contend on the registry lookup. Entries
	// are reference-counted and removed when the last holder releases, so
	// the registry is bounded by in-flight requests, not by the number of
	// caller ids ever seen.
	mu    sync.Mutex
	locks map[string]*callerLock
}

type callerLock struct {
	mu   sync.Mutex
	refs int
}

// NewEngine creates a clarification engine. now supplies the clock for
// pending-state timestamps; nil means time.Now.
func NewEngine(extractor extract.Extractor, store PendingStore, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		extractor: extractor,
		store:     store,
		now:       now,
		locks:     make(map[string]*callerLock),
	}
}

// Process runs one caller message through the state machine.
//
// With no pending state, the text is extracted and validated: valid commands
// come back Ready, invalid ones are stored and the first missing field (in
// declaration order) is asked for. With pending state, the raw text is merged
// verbatim into the outstanding field and re-validated; no re-extraction
// happens on a merge step.
func (e *Engine) Process(ctx context.Context, callerID, text string) Outcome {
	lock := e.acquireCallerLock(callerID)
	defer e.releaseCallerLock(callerID, lock)

	if state, ok := e.store.Get(callerID); ok {
		return e.merge(callerID, state, text)
	}

	cmd, err := e.extractor.Extract(ctx, text)
	if err != nil {
		// Pending state for this caller stays untouched.
		return Outcome{Kind: KindFailed, Err: err}
	}

	missing := MissingRequired(cmd)
	if len(missing) == 0 {
		return Outcome{Kind: KindReady, Command: cmd}
	}

	e.store.Put(callerID, PendingState{
		Command:  cmd,
		Missing:  missing,
		StoredAt: e.now(),
	})
	return askFor(missing[0])
}

// merge assigns the whole follow-up text to the single outstanding field and
// re-validates. All-or-nothing: the stored entry is only replaced once the
// merged result is known.
func (e *Engine) merge(callerID string, state PendingState, text string) Outcome {
	merged := state.Command.Clone()
	merged.Body[state.Missing[0]] = strings.TrimSpace(text)

	missing := MissingRequired(merged)
	if len(missing) == 0 {
		// Clear before reporting Ready: dispatch failures downstream must
		// not leave a completed command lingering as pending.
		e.store.Delete(callerID)
		return Outcome{Kind: KindReady, Command: merged}
	}

	e.store.Put(callerID, PendingState{
		Command:  merged,
		Missing:  missing,
		StoredAt: e.now(),
	})
	return askFor(missing[0])
}

func askFor(field string) Outcome {
	return Outcome{
		Kind:    KindNeedsInput,
		Field:   field,
		Message: command.PromptFor(field),
	}
}

// MissingRequired returns the unsatisfied required fields of a command in
// declaration order. Deterministic: never input-order-dependent.
func MissingRequired(cmd command.Command) []string {
	var missing []string
	for _, f := range command.RequiredFields {
		if !FieldSatisfied(cmd.Body[f.Name]) {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

func (e *Engine) acquireCallerLock(callerID string) *callerLock {
	e.mu.Lock()
	lock, ok := e.locks[callerID]
	if !ok {
		lock = &callerLock{}
		e.locks[callerID] = lock
	}
	lock.refs++
	e.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (e *Engine) releaseCallerLock(callerID string, lock *callerLock) {
	lock.mu.Unlock()

	e.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(e.locks, callerID)
	}
	e.mu.Unlock()
}

// lockCount reports live entries in the per-caller lock registry.
func (e *Engine) lockCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.locks)
}
