// Package engine is the directive executor: it parses, validates, caches,
// evaluates and schedules directives against a note store, tying the lower
// layers together behind one entry point.
package engine

import (
	"log"
	"sync"
	"time"

	"github.com/quillnotes/quill/pkg/cache"
	"github.com/quillnotes/quill/pkg/deps"
	"github.com/quillnotes/quill/pkg/eval"
	"github.com/quillnotes/quill/pkg/eval/errs"
	"github.com/quillnotes/quill/pkg/logutil"
	"github.com/quillnotes/quill/pkg/note"
	"github.com/quillnotes/quill/pkg/parse"
	"github.com/quillnotes/quill/pkg/trigger"
	"github.com/quillnotes/quill/pkg/validate"
)

// Engine executes directives. It is safe for concurrent use.
type Engine struct {
	store    note.Store
	cache    *cache.Manager
	once     *eval.OnceStore
	registry *trigger.Registry
	clock    func() time.Time
	logger   *log.Logger

	mu      sync.Mutex
	failing map[note.ID]string
}

// New returns an Engine over the given store and cache with discard logging.
func New(store note.Store, c *cache.Manager) *Engine {
	return &Engine{
		store:    store,
		cache:    c,
		once:     eval.NewOnceStore(),
		registry: trigger.NewRegistry(),
		clock:    time.Now,
		logger:   logutil.Discard,
		failing:  make(map[note.ID]string),
	}
}

// SetClock overrides the wall clock, for tests and for evaluating "as of" a
// hypothetical instant.
func (e *Engine) SetClock(clock func() time.Time) { e.clock = clock }

// SetLogger directs the engine's diagnostics.
func (e *Engine) SetLogger(l *log.Logger) { e.logger = l }

// Registry returns the trigger registry an external scheduler polls.
func (e *Engine) Registry() *trigger.Registry { return e.registry }

// Cache returns the result cache the engine serves from.
func (e *Engine) Cache() *cache.Manager { return e.cache }

// Outcome is the result of executing one directive.
type Outcome struct {
	// Value is the computed value; nil when Err is set. Results restored
	// from the durable cache may carry only Rendered.
	Value eval.Value
	// Rendered is the display string of Value.
	Rendered string
	// Err is the parse, validation or execution error, if any.
	Err error
	// FromCache reports whether the result was served from cache.
	FromCache bool
	// Changed reports whether the rendered value differs from the last one
	// cached for this directive.
	Changed bool
	// Triggers are the wake instants registered for a reactive directive.
	Triggers []trigger.Trigger
	// TriggerErr is set when a reactive directive's wake instants could not
	// be computed. The value still rendered; the directive will never
	// refresh, which the author needs to hear about.
	TriggerErr error
	// Ops are the mutations the directive collected; the caller applies
	// them.
	Ops []note.Op
	// Deps is the dependency set of this execution.
	Deps *deps.Set
}

// Execute runs the directive with the given source text in the context of
// the given note. current may be nil for a directive outside any note.
func (e *Engine) Execute(src string, current *note.Note) *Outcome {
	o := e.run(src, current, nil)
	e.trackFailure(current, o)
	return o
}

// run is the shared execution path of Execute and nested view evaluation.
func (e *Engine) run(src string, current *note.Note, viewStack []note.ID) *Outcome {
	srcName := "directive"
	if current != nil {
		srcName = current.Name
	}

	body, err := parse.Parse(srcName, src)
	if err != nil {
		// Parse errors are never cached; the author is mid-edit.
		return &Outcome{Err: err}
	}
	if err := validate.Check(srcName, src, body); err != nil {
		return &Outcome{Err: err}
	}

	var id note.ID
	if current != nil {
		id = current.ID
	}
	slot := cache.SlotFor(cache.Key(src), id, deps.UsesSelfReference(body))
	mutating := validate.ContainsMutations(body)

	if r, ok := e.lookup(slot, mutating); ok {
		return &Outcome{
			Value:     cachedValue(r),
			Rendered:  r.Rendered,
			Err:       r.Err(),
			FromCache: true,
			Deps:      r.Deps,
		}
	}

	prev, hadPrev := e.cache.GetAny(slot)
	o := e.evaluate(body, current, viewStack, slot)
	o.Changed = !hadPrev || prev.Rendered != o.Rendered || (prev.Failed != (o.Err != nil))
	return o
}

// lookup consults the cache. A mutating directive returns any cached result,
// stale or not: re-running it to freshen a display would repeat its side
// effects, and only an explicit action run may do that.
func (e *Engine) lookup(slot cache.Slot, mutating bool) (*cache.Result, bool) {
	if mutating {
		return e.cache.GetAny(slot)
	}
	return e.cache.GetIfValid(slot, e.store)
}

func (e *Engine) evaluate(body parse.Node, current *note.Note, viewStack []note.ID, slot cache.Slot) *Outcome {
	collector := deps.NewCollector()
	collector.StartDirective()

	ev := eval.New(e.store, current)
	ev.Once = e.once
	ev.Deps = collector
	ev.Clock = e.clock
	ev.ViewStack = viewStack
	ev.Nested = e.nested

	v, evalErr := ev.Eval(body)
	set := collector.FinishDirective()
	foldViews(v, set)
	// The static estimate covers branches this evaluation did not take.
	set.Merge(deps.Estimate(body))

	o := &Outcome{Deps: set, Ops: ev.Sink.Ops()}
	if evalErr != nil {
		o.Err = evalErr
		if errs.Deterministic(evalErr) {
			e.put(slot, &cache.Result{
				Failed:  true,
				ErrKind: errs.Classify(evalErr),
				ErrMsg:  errMessage(evalErr),
				Deps:    set,
			})
		}
		return o
	}

	o.Value = v
	o.Rendered = eval.Repr(v)
	e.put(slot, &cache.Result{Value: v, Rendered: o.Rendered, Deps: set})

	if reactive, ok := body.(*parse.DeferReactive); ok {
		o.Triggers, o.TriggerErr = e.analyzeTriggers(reactive, current, slot)
	}
	return o
}

func (e *Engine) put(slot cache.Slot, r *cache.Result) {
	r.Snapshot(e.store, e.cache.Hasher())
	e.cache.Put(slot, r)
}

// nested is the [eval.NestedFunc] wired into evaluators, so a viewed note's
// directives run through the full cached pipeline. The returned set is the
// inner directive's complete stored set even on a cache hit.
func (e *Engine) nested(src string, n *note.Note, viewStack []note.ID) (eval.Value, *deps.Set, error) {
	o := e.run(src, n, viewStack)
	if o.Err != nil {
		return nil, o.Deps, o.Err
	}
	return cachedOutcomeValue(o), o.Deps, nil
}

// analyzeTriggers computes and registers the wake instants of a reactive
// directive. Analysis failure is returned to the caller; the value itself
// already rendered.
func (e *Engine) analyzeTriggers(reactive *parse.DeferReactive, current *note.Note, slot cache.Slot) ([]trigger.Trigger, error) {
	verify := func(at time.Time) (string, error) {
		ev := eval.New(e.store, current)
		ev.Once = e.once
		ev.Clock = func() time.Time { return at }
		ev.Nested = e.nested
		v, err := ev.Eval(reactive.Body)
		if err != nil {
			return "", err
		}
		return eval.Repr(v), nil
	}
	triggers, err := trigger.Analyze(reactive.Body, e.clock(), verify)
	if err != nil {
		e.logger.Printf("trigger analysis: %v", err)
		return nil, err
	}
	// Registered under the slot identity, so a host acting on a fired
	// trigger can reconstruct the slot to invalidate.
	e.registry.Register(trigger.Registration{Key: slot.Key, NoteID: slot.NoteID, Triggers: triggers})
	return triggers, nil
}

// RunAction executes the action of a button or schedule value and returns
// the mutations it collected. Actions always run fresh; their effects are
// the point.
func (e *Engine) RunAction(action parse.Node, current *note.Note) ([]note.Op, error) {
	ev := eval.New(e.store, current)
	ev.Once = e.once
	ev.Clock = e.clock
	ev.Nested = e.nested
	if _, err := ev.Eval(action); err != nil {
		return nil, err
	}
	return ev.Sink.Ops(), nil
}

// Render renders a note's full text, replacing each embedded directive with
// its value and unescaping doubled brackets in the plain text.
func (e *Engine) Render(n *note.Note) string {
	return parse.ReplaceSpans(n.Text(), func(sp parse.Span) string {
		if sp.Unterminated {
			return sp.Source
		}
		o := e.run(sp.Source, n, nil)
		if o.Err != nil {
			return "⚠ " + o.Err.Error()
		}
		return o.Rendered
	})
}

// NoteChanged tells the engine that a note's content or metadata changed.
func (e *Engine) NoteChanged(id note.ID) {
	e.cache.NoteChanged(id)
}

// NoteRemoved tells the engine that a note was deleted.
func (e *Engine) NoteRemoved(id note.ID) {
	e.cache.NoteRemoved(id)
	e.once.DropNote(id)
	e.mu.Lock()
	delete(e.failing, id)
	e.mu.Unlock()
}

// BeginEdit starts an edit session for a note; see [cache.Manager].
func (e *Engine) BeginEdit(id note.ID) { e.cache.BeginSession(id) }

// EndEdit ends the edit session, committing or discarding it.
func (e *Engine) EndEdit(commit bool) { e.cache.EndSession(commit) }

// FailingNotes returns the notes whose last executed directive errored,
// with the error message, keyed by note ID.
func (e *Engine) FailingNotes() map[note.ID]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[note.ID]string, len(e.failing))
	for id, msg := range e.failing {
		out[id] = msg
	}
	return out
}

func (e *Engine) trackFailure(current *note.Note, o *Outcome) {
	if current == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if o.Err != nil {
		e.failing[current.ID] = o.Err.Error()
	} else {
		delete(e.failing, current.ID)
	}
}

// foldViews adds a value's displayed notes to the dependency set. A rendered
// view shows full content, so both the name and body of every shown note are
// dependencies; a bare note value renders its name, so the name alone is.
func foldViews(v eval.Value, set *deps.Set) {
	switch v := v.(type) {
	case eval.ViewVal:
		for _, id := range v.IDs {
			set.AddName(id)
			set.AddBody(id)
		}
	case eval.NoteVal:
		set.AddName(v.Note.ID)
	case eval.List:
		for _, item := range v {
			foldViews(item, set)
		}
	}
}

// cachedValue recovers a usable value from a cached result, falling back to
// the rendered string when the concrete value did not survive the durable
// round trip.
func cachedValue(r *cache.Result) eval.Value {
	if r.Failed {
		return nil
	}
	if r.Value != nil {
		return r.Value
	}
	return eval.Str(r.Rendered)
}

func cachedOutcomeValue(o *Outcome) eval.Value {
	if o.Value != nil {
		return o.Value
	}
	return eval.Str(o.Rendered)
}

func errMessage(err error) string {
	if ee, ok := err.(*errs.Error); ok {
		return ee.Message
	}
	return err.Error()
}
