package run

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rendis/routinegraph/internal/conditions"
	"github.com/rendis/routinegraph/internal/logging"
	"github.com/rendis/routinegraph/internal/steps"
	"github.com/rendis/routinegraph/pkg/schema"
)

// Tracker follows one run of a routine: the open step, completed
// complexity, visited locations and per-step telemetry. It is safe for
// concurrent use so the host can drive Tick, Blur and Focus from its own
// timer and focus listeners.
type Tracker struct {
	mu sync.Mutex

	runID      string
	languages  []string
	graph      schema.Graph
	tree       *steps.RoutineListStep
	current    steps.Location
	done       bool
	conditions *conditions.Evaluator
	logger     *slog.Logger

	completed int
	visited   []steps.Location
	records   map[string]*StepRecord
	order     []string
	choices   []Choice

	// Telemetry of the open step, folded into records on navigation.
	elapsed  int
	switches int
	blurred  bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRunID sets the run ID; a random UUID is used otherwise.
func WithRunID(id string) Option {
	return func(t *Tracker) { t.runID = id }
}

// WithLanguages sets the preferred languages for step titles.
func WithLanguages(languages ...string) Option {
	return func(t *Tracker) { t.languages = languages }
}

// WithConditions filters decision links through ev in AvailableLinks.
func WithConditions(ev *conditions.Evaluator) Option {
	return func(t *Tracker) { t.conditions = ev }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// New starts a run of g positioned at its first step. The graph is copied.
// A graph without nodes or links cannot be run.
func New(g schema.Graph, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		runID:   uuid.NewString(),
		records: make(map[string]*StepRecord),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(t)
	}

	t.graph = g.Clone()
	t.tree = steps.BuildTree(t.graph, t.languages)
	if t.tree == nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"routine %q has no nodes or links to run", g.RoutineID)
	}
	t.current = steps.FirstLocation(t.tree)
	t.done = t.current == nil
	t.visit()
	return t, nil
}

// RunID returns the run identifier.
func (t *Tracker) RunID() string { return t.runID }

// Tree returns the current step tree, including injected expansions.
func (t *Tracker) Tree() *steps.RoutineListStep {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree
}

// Current reports the open step; nil once the run is done.
func (t *Tracker) Current() Move {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move()
}

// Complete marks the step at loc as done. It returns false, leaving the
// completed complexity unchanged, when loc was already completed or does
// not address a step.
func (t *Tracker) Complete(loc steps.Location) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.complete(loc)
}

// PercentComplete returns completed over total complexity, as a
// percentage clamped to [0, 100].
func (t *Tracker) PercentComplete() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent()
}

// Tick adds one second to the open step.
func (t *Tracker) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.done {
		t.elapsed++
	}
}

// Blur records that the host surface lost focus.
func (t *Tracker) Blur() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.done {
		t.blurred = true
	}
}

// Focus records that the host surface regained focus. Each return after
// a Blur counts as one context switch of the step open at Blur time.
func (t *Tracker) Focus() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.blurred {
		t.blurred = false
		t.switches++
	}
}

// ToNext completes the open step and moves to the one after it. A
// decision is left open: the host must Choose one of its links.
func (t *Tracker) ToNext(ctx context.Context) Move {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return t.move()
	}
	if _, ok := steps.StepAt(t.tree, t.current).(*steps.DecisionStep); ok {
		return t.move()
	}
	t.fold()
	t.complete(t.current)
	return t.moveTo(ctx, steps.NextLocation(t.tree, t.current))
}

// ToPrevious reopens the step run before the open one. At the first step
// nothing changes. After the run is done, the last step is reopened.
func (t *Tracker) ToPrevious(ctx context.Context) Move {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		if t.current == nil {
			return t.move()
		}
		t.done = false
		t.visit()
		return t.move()
	}
	prev := steps.PreviousLocation(t.tree, t.current)
	if prev == nil {
		return t.move()
	}
	t.fold()
	return t.moveTo(ctx, prev)
}

// Choose follows a link of the open decision. A link to an End node
// finishes the run; otherwise the run continues at the first step of the
// routine list built from the link's target.
func (t *Tracker) Choose(ctx context.Context, linkID string) (Move, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	decision, ok := steps.StepAt(t.tree, t.current).(*steps.DecisionStep)
	if t.done || !ok {
		return t.move(), schema.NewErrorf(schema.ErrCodeValidation,
			"no decision is open at %q", t.current.String())
	}
	var link *schema.Link
	for i := range decision.Links {
		if decision.Links[i].ID == linkID {
			link = &decision.Links[i]
			break
		}
	}
	if link == nil {
		return t.move(), schema.NewErrorf(schema.ErrCodeNotFound,
			"link %q is not offered by the decision", linkID).WithNode(decision.NodeID)
	}
	target, ok := t.graph.Node(link.ToID)
	if !ok {
		return t.move(), schema.NewErrorf(schema.ErrCodeNotFound,
			"link %q points at unknown node %q", linkID, link.ToID).WithNode(decision.NodeID)
	}

	var next steps.Location
	if target.Kind() != schema.NodeKindEnd {
		listLoc := steps.LocationOfNode(t.tree, t.current, target.ID)
		if listLoc == nil {
			return t.move(), schema.NewErrorf(schema.ErrCodeNotFound,
				"node %q has no steps in this run", target.ID).WithNode(decision.NodeID)
		}
		leaf, ok := steps.DescendFirst(t.tree, listLoc)
		switch {
		case ok:
			next = leaf
		case leaf != nil:
			next = steps.NextLocation(t.tree, leaf)
		}
	}

	t.fold()
	t.complete(t.current)
	t.choices = append(t.choices, Choice{
		Location: t.current.Clone(),
		NodeID:   decision.NodeID,
		LinkID:   link.ID,
	})
	t.logger.InfoContext(logging.WithNodeID(t.logCtx(ctx), decision.NodeID), "decision taken",
		slog.String("link_id", link.ID),
		slog.String("to", target.ID),
	)
	return t.moveTo(ctx, next), nil
}

// Expand injects the fetched subtree of a subroutine. When the open step
// is the stub being expanded, the run moves into its first step.
func (t *Tracker) Expand(ctx context.Context, expansion *steps.RoutineListStep) Move {
	t.mu.Lock()
	defer t.mu.Unlock()

	if expansion == nil {
		return t.move()
	}
	stub, ok := steps.StepAt(t.tree, t.current).(*steps.SubroutineStep)
	if !ok || t.done || (expansion.RoutineID != "" && stub.Routine.ID != expansion.RoutineID) {
		t.tree = steps.InjectExpansion(t.tree, expansion)
		return t.move()
	}

	t.fold()
	t.tree = steps.ExpandAt(t.tree, t.current, expansion)
	t.logger.DebugContext(t.logCtx(ctx), "subroutine expanded",
		slog.String("routine", stub.Routine.ID),
		slog.String("location", t.current.String()),
	)
	leaf, ok := steps.DescendFirst(t.tree, t.current)
	switch {
	case ok:
		t.current = leaf
		t.visit()
		return t.move()
	case leaf != nil:
		return t.moveTo(ctx, steps.NextLocation(t.tree, leaf))
	default:
		return t.move()
	}
}

// AvailableLinks returns the links of the open decision whose conditions
// hold for vars. It returns nil when no decision is open.
func (t *Tracker) AvailableLinks(ctx context.Context, vars map[string]any) ([]schema.Link, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	decision, ok := steps.StepAt(t.tree, t.current).(*steps.DecisionStep)
	if t.done || !ok {
		return nil, nil
	}
	if t.conditions == nil {
		return append([]schema.Link(nil), decision.Links...), nil
	}
	return t.conditions.Filter(t.logCtx(ctx), decision.Links, vars)
}

// Snapshot returns the run record. The open step's record includes the
// telemetry gathered since it was opened.
func (t *Tracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := Progress{
		RunID:               t.runID,
		RoutineID:           t.graph.RoutineID,
		CompletedComplexity: t.completed,
		TotalComplexity:     t.tree.Complexity(),
		PercentComplete:     t.percent(),
		Visited:             make([]steps.Location, 0, len(t.visited)),
		Steps:               make([]StepRecord, 0, len(t.order)),
		Choices:             append([]Choice(nil), t.choices...),
		Done:                t.done,
	}
	if !t.done {
		p.Current = t.current.Clone()
	}
	for _, loc := range t.visited {
		p.Visited = append(p.Visited, loc.Clone())
	}
	for _, key := range t.order {
		rec := *t.records[key]
		rec.Location = rec.Location.Clone()
		if !t.done && rec.Location.Equal(t.current) {
			rec.TimeElapsedSeconds += t.elapsed
			rec.ContextSwitches += t.switches
		}
		p.Steps = append(p.Steps, rec)
	}
	return p
}

func (t *Tracker) complete(loc steps.Location) bool {
	s := steps.StepAt(t.tree, loc)
	if s == nil {
		return false
	}
	for _, v := range t.visited {
		if v.Equal(loc) {
			return false
		}
	}
	t.visited = append(t.visited, loc.Clone())
	t.completed += s.Complexity()
	return true
}

func (t *Tracker) percent() float64 {
	total := t.tree.Complexity()
	if total <= 0 {
		if t.done {
			return 100
		}
		return 0
	}
	p := float64(t.completed) / float64(total) * 100
	return min(max(p, 0), 100)
}

// moveTo opens loc, or finishes the run when loc is nil.
func (t *Tracker) moveTo(ctx context.Context, loc steps.Location) Move {
	if loc == nil {
		t.done = true
		t.logger.InfoContext(t.logCtx(ctx), "run finished",
			slog.Int("completed_complexity", t.completed),
			slog.Float64("percent", t.percent()),
		)
		return t.move()
	}
	t.current = loc
	t.visit()
	t.logger.DebugContext(t.logCtx(ctx), "step opened", slog.String("location", loc.String()))
	return t.move()
}

func (t *Tracker) move() Move {
	if t.done {
		return Move{Done: true}
	}
	s := steps.StepAt(t.tree, t.current)
	_, decision := s.(*steps.DecisionStep)
	return Move{
		Location:       t.current.Clone(),
		NeedsExpansion: steps.NeedsExpansion(s),
		AwaitingChoice: decision,
	}
}

// record returns the telemetry record of loc, creating it on first use.
func (t *Tracker) record(loc steps.Location) *StepRecord {
	key := loc.String()
	rec, ok := t.records[key]
	if !ok {
		rec = &StepRecord{Location: loc.Clone()}
		t.records[key] = rec
		t.order = append(t.order, key)
	}
	return rec
}

func (t *Tracker) visit() {
	if t.current == nil {
		return
	}
	t.record(t.current).Visits++
}

// fold moves the open step's timers into its record. A pending Blur is
// charged to the step being left.
func (t *Tracker) fold() {
	if t.current == nil {
		return
	}
	if t.blurred {
		t.blurred = false
		t.switches++
	}
	rec := t.record(t.current)
	rec.TimeElapsedSeconds += t.elapsed
	rec.ContextSwitches += t.switches
	t.elapsed = 0
	t.switches = 0
}

func (t *Tracker) logCtx(ctx context.Context) context.Context {
	return logging.WithRunID(logging.WithRoutineID(ctx, t.graph.RoutineID), t.runID)
}
