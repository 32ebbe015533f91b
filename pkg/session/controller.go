// Package session implements the client-side state machine of one open form
// step: the working value map, branch selections, per-field validation
// errors, debounced autosave, and live progress publication.
//
// A Controller owns its value and selection maps exclusively. All mutation
// happens through SetValue, SelectBranch and Save; the canonical saved
// snapshot advances only when the backend accepts a push.
package session

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/stepform/stepform/pkg/live"
	"github.com/stepform/stepform/pkg/logging"
	"github.com/stepform/stepform/pkg/pubsub"
	"github.com/stepform/stepform/pkg/schema"
)

// Status is the autosave state of a controller.
type Status int

// Controller states. Any edit while not saving moves to StatusEditing and
// arms the debounce window; the window firing moves to StatusSaving; the
// outcome settles back to StatusIdle or StatusSaveFailed.
const (
	StatusIdle Status = iota
	StatusEditing
	StatusSaving
	StatusSaveFailed
)

// String returns the wire name of a status.
func (s Status) String() string {
	switch s {
	case StatusEditing:
		return "editing"
	case StatusSaving:
		return "saving"
	case StatusSaveFailed:
		return "save-failed"
	default:
		return "idle"
	}
}

// Saver pushes a partial value map to the backend.
type Saver interface {
	SaveDraft(ctx context.Context, partial schema.Values) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, partial schema.Values) error

// SaveDraft calls the function.
func (f SaverFunc) SaveDraft(ctx context.Context, partial schema.Values) error {
	return f(ctx, partial)
}

// Config assembles a Controller.
type Config struct {
	// Step is the schema of the step being edited.
	Step *schema.Group

	// Structure is the whole form, needed for whole-form progress.
	Structure schema.Structure

	// Saved is the backend's snapshot for the entire form at load time.
	Saved schema.Values

	// Saver receives draft pushes.
	Saver Saver

	// Bus receives encoded live frames; Topic names the channel. Optional.
	Bus   *pubsub.Bus
	Topic string

	// Debounce is the autosave inactivity window. Zero means 700ms.
	Debounce time.Duration

	// SaveTimeout bounds one backend push. Zero means 15s.
	SaveTimeout time.Duration

	// ReadOnly disables all mutation (submitted forms).
	ReadOnly bool

	Logger logging.Logger
}

// Controller is the per-step form session.
type Controller struct {
	step      *schema.Group
	structure schema.Structure
	rootAcr   string

	saver       Saver
	bus         *pubsub.Bus
	topic       string
	debounce    time.Duration
	saveTimeout time.Duration
	readOnly    bool
	logger      logging.Logger

	mu         sync.Mutex
	saved      schema.Values // whole-form baseline, advanced on save success
	values     schema.Values // working copy for this step
	selections schema.Selections
	errors     map[string]string
	status     Status
	timer      *time.Timer
	closed     bool

	// saveMu serializes network pushes so a retried early diff can never
	// overwrite a later one.
	saveMu sync.Mutex
}

// New builds a controller seeded from the saved snapshot: the step's values
// are copied in by root-acronym prefix and branch selections are taken from
// stored selection values, falling back to inference over child values.
func New(cfg Config) *Controller {
	c := &Controller{
		step:        cfg.Step,
		structure:   cfg.Structure,
		rootAcr:     schema.Acronym(cfg.Step.Title),
		saver:       cfg.Saver,
		bus:         cfg.Bus,
		topic:       cfg.Topic,
		debounce:    cfg.Debounce,
		saveTimeout: cfg.SaveTimeout,
		readOnly:    cfg.ReadOnly,
		logger:      cfg.Logger,
		saved:       make(schema.Values, len(cfg.Saved)),
		errors:      make(map[string]string),
		status:      StatusIdle,
	}
	if c.debounce <= 0 {
		c.debounce = 700 * time.Millisecond
	}
	if c.saveTimeout <= 0 {
		c.saveTimeout = 15 * time.Second
	}
	if c.logger == nil {
		c.logger = logging.Nop()
	}
	for k, v := range cfg.Saved {
		c.saved[k] = v
	}
	c.values = schema.FilterForStep(c.saved, c.rootAcr)
	c.rebuildSelections()
	return c
}

// Status returns the current autosave state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Values returns a copy of the working value map.
func (c *Controller) Values() schema.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(schema.Values, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Selections returns a copy of the branch-selection map.
func (c *Controller) Selections() schema.Selections {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(schema.Selections, len(c.selections))
	for k, v := range c.selections {
		out[k] = v
	}
	return out
}

// Errors returns a copy of the per-field error map; only keys with a
// non-empty message are present.
func (c *Controller) Errors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.errors))
	for k, v := range c.errors {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Progress computes the optimistic whole-form percentage: the saved baseline
// merged with every pending local edit.
func (c *Controller) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return schema.Progress(c.structure, c.merged())
}

// Tree returns the renderable active tree for the step under the current
// working values.
func (c *Controller) Tree() []schema.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return schema.ActiveTree(c.step, c.values, []string{c.rootAcr})
}

// SetValue records one field edit: updates the value, revalidates the field,
// moves to editing, re-arms the debounce window and republishes progress.
// Unknown keys (not currently active) are ignored.
func (c *Controller) SetValue(key string, value any) {
	c.mu.Lock()
	if c.readOnly || c.closed {
		c.mu.Unlock()
		return
	}
	field := c.fieldFor(key)
	if field == nil {
		c.mu.Unlock()
		return
	}
	if field.Branching() {
		c.mu.Unlock()
		c.SelectBranch(key, asString(value))
		return
	}

	c.values[key] = value
	c.errors[key] = schema.ValidateField(field, value)
	c.markEditingLocked()
	frames := []*live.Frame{
		live.FieldError(key, c.errors[key]),
		live.Progress(schema.Progress(c.structure, c.merged())),
		live.SaveState(c.status.String(), ""),
	}
	c.mu.Unlock()
	c.publish(frames...)
}

// SelectBranch changes a branching field's selection. The selection itself is
// stored under the field's plain key, and the working copies of every child
// value across all of the field's options are cleared so no stale cross-
// branch value leaks into the active view. Values already saved on the
// backend under the abandoned option stay there as orphans; progress and
// rendering ignore them.
func (c *Controller) SelectBranch(parentKey string, option string) {
	c.mu.Lock()
	if c.readOnly || c.closed {
		c.mu.Unlock()
		return
	}
	field := c.fieldFor(parentKey)
	if field == nil || !field.Branching() {
		c.mu.Unlock()
		return
	}

	c.values[parentKey] = option
	c.errors[parentKey] = schema.ValidateField(field, option)

	// parentKey is parts + Pascal(label); everything before the last segment
	// is the path.
	parts := splitParts(parentKey)
	for _, opt := range field.BranchOptions() {
		for _, bf := range field.Branches[opt] {
			childKey := schema.BranchLeafKey(parts, field.Label, opt, bf.Label)
			delete(c.values, childKey)
			delete(c.errors, childKey)
		}
	}
	c.rebuildSelectionsLocked()
	c.markEditingLocked()
	frames := []*live.Frame{
		live.FieldError(parentKey, c.errors[parentKey]),
		live.Progress(schema.Progress(c.structure, c.merged())),
		live.SaveState(c.status.String(), ""),
	}
	c.mu.Unlock()
	c.publish(frames...)
}

// Save force-pushes the full current value set, bypassing the debounce
// window, and blocks until the backend answers. On success the baseline
// advances past all pending edits.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.readOnly || c.closed {
		c.mu.Unlock()
		return nil
	}
	c.stopTimerLocked()
	full := make(schema.Values, len(c.values))
	for k, v := range c.values {
		full[k] = v
	}
	c.status = StatusSaving
	c.mu.Unlock()
	c.publish(live.SaveState("saving", ""))

	return c.push(ctx, full)
}

// ValidateStep validates every active leaf of the step plus the selection
// value of every branching field (a required branching field needs a choice
// even when no child is required) and records the resulting error map.
// Returns true when the step is clean.
func (c *Controller) ValidateStep() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	errs := schema.ValidateStep(c.step, c.values, c.selections)
	c.validateBranchParents(schema.ActiveTree(c.step, c.values, []string{c.rootAcr}), errs)
	for k, v := range errs {
		c.errors[k] = v
	}
	return len(errs) == 0
}

func (c *Controller) validateBranchParents(nodes []schema.Node, errs map[string]string) {
	for _, n := range nodes {
		if n.Kind == schema.KindBranchParent {
			if msg := schema.ValidateField(n.Field, c.values[n.ParentKey]); msg != "" {
				errs[n.ParentKey] = msg
			}
		}
		c.validateBranchParents(n.Children, errs)
	}
}

// SanitizedValues returns the working values filtered to active leaves, the
// payload shape used for final submission.
func (c *Controller) SanitizedValues() schema.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := schema.SanitizeToActive(c.step, c.values, c.selections)
	// The selection values themselves ride along under their plain keys.
	for key, opt := range c.activeSelectionValuesLocked() {
		out[key] = opt
	}
	return out
}

// Close stops the debounce timer. Pending in-flight saves are abandoned, not
// cancelled; the backend overwrites by key, so a late arrival is harmless.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopTimerLocked()
}

// --- internals ---

// markEditingLocked transitions to editing and re-arms the debounce window.
// Caller holds mu.
func (c *Controller) markEditingLocked() {
	if c.status != StatusSaving {
		c.status = StatusEditing
	}
	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.debounce, c.flush)
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// flush runs when the debounce window expires: it pushes the diff between
// the working values and the saved baseline.
func (c *Controller) flush() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	diff := make(schema.Values)
	for k, v := range c.values {
		if base, ok := c.saved[k]; !ok || !valueEqual(base, v) {
			diff[k] = v
		}
	}
	if len(diff) == 0 {
		if c.status == StatusEditing {
			c.status = StatusIdle
		}
		c.mu.Unlock()
		return
	}
	c.status = StatusSaving
	c.mu.Unlock()
	c.publish(live.SaveState("saving", ""))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.saveTimeout)
		defer cancel()
		c.push(ctx, diff) // outcome frames published inside
	}()
}

// push performs one serialized backend push and settles the state machine.
func (c *Controller) push(ctx context.Context, partial schema.Values) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	err := c.saver.SaveDraft(ctx, partial)

	c.mu.Lock()
	if err != nil {
		// Baseline unchanged: the same diff is retried on the next edit or
		// manual save. No automatic retry.
		c.status = StatusSaveFailed
		c.mu.Unlock()
		c.logger.Warn("draft save failed", logging.Err(err))
		c.publish(live.SaveState("save-failed", "Save failed - retry"))
		return err
	}
	for k, v := range partial {
		c.saved[k] = v
	}
	// More edits may have landed while the push was in flight.
	dirty := false
	for k, v := range c.values {
		if base, ok := c.saved[k]; !ok || !valueEqual(base, v) {
			dirty = true
			break
		}
	}
	if dirty {
		c.status = StatusEditing
		c.stopTimerLocked()
		c.timer = time.AfterFunc(c.debounce, c.flush)
	} else {
		c.status = StatusIdle
	}
	settled := c.status.String()
	c.mu.Unlock()
	c.publish(live.SaveState(settled, ""))
	return nil
}

// merged overlays pending edits on the saved baseline. Caller holds mu.
func (c *Controller) merged() schema.Values {
	out := make(schema.Values, len(c.saved)+len(c.values))
	for k, v := range c.saved {
		out[k] = v
	}
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// fieldFor resolves a flat key to its field among the step's active nodes,
// branch parents included. Caller holds mu.
func (c *Controller) fieldFor(key string) *schema.Field {
	for _, n := range schema.ActiveTree(c.step, c.values, []string{c.rootAcr}) {
		if f := findInNode(n, key); f != nil {
			return f
		}
	}
	return nil
}

func findInNode(n schema.Node, key string) *schema.Field {
	if (n.Kind == schema.KindLeaf || n.Kind == schema.KindBranchParent) && n.Key == key {
		return n.Field
	}
	for _, child := range n.Children {
		if f := findInNode(child, key); f != nil {
			return f
		}
	}
	return nil
}

// rebuildSelections derives the selection map: explicit stored selections
// win, inference over child values fills the gaps.
func (c *Controller) rebuildSelections() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebuildSelectionsLocked()
}

func (c *Controller) rebuildSelectionsLocked() {
	sel := schema.InferSelections(c.step, c.values, []string{c.rootAcr})
	c.collectStoredSelections(c.step, []string{c.rootAcr}, sel)
	c.selections = sel
}

func (c *Controller) collectStoredSelections(node *schema.Group, parts []string, sel schema.Selections) {
	for i := range node.Fields {
		f := &node.Fields[i]
		if !f.Branching() {
			continue
		}
		opt, _ := c.values[schema.LeafKey(parts, f.Label)].(string)
		if opt == "" {
			continue
		}
		if _, ok := f.Branches[opt]; ok {
			sel[schema.SelectionKey(parts, f.Label)] = opt
		}
	}
	for i := range node.SubGroups {
		sg := &node.SubGroups[i]
		c.collectStoredSelections(sg, append(parts, schema.Acronym(sg.Title)), sel)
	}
}

// activeSelectionValuesLocked returns plain-key selection values for every
// branching field that currently has a valid selection. Caller holds mu.
func (c *Controller) activeSelectionValuesLocked() map[string]string {
	out := make(map[string]string)
	var walk func(node *schema.Group, parts []string)
	walk = func(node *schema.Group, parts []string) {
		for i := range node.Fields {
			f := &node.Fields[i]
			if !f.Branching() {
				continue
			}
			key := schema.LeafKey(parts, f.Label)
			if opt, _ := c.values[key].(string); opt != "" {
				out[key] = opt
			}
		}
		for i := range node.SubGroups {
			sg := &node.SubGroups[i]
			walk(sg, append(parts, schema.Acronym(sg.Title)))
		}
	}
	walk(c.step, []string{c.rootAcr})
	return out
}

// publish encodes and fans out frames on the controller's topic.
func (c *Controller) publish(frames ...*live.Frame) {
	if c.bus == nil {
		return
	}
	for _, f := range frames {
		data, err := live.Encode(f)
		if err != nil {
			c.logger.Error("encode live frame", logging.Err(err))
			continue
		}
		if err := c.bus.Publish(c.topic, data); err != nil && err != pubsub.ErrClosed {
			c.logger.Warn("publish live frame", logging.Err(err))
		}
	}
}

// valueEqual compares two snapshot values. Backend JSON and live frames can
// carry nested objects or arrays, whose dynamic types make plain == panic.
func valueEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// splitParts strips the final segment of a flat key and returns the path.
func splitParts(key string) []string {
	idx := strings.LastIndexByte(key, '_')
	if idx < 0 {
		return nil
	}
	return strings.Split(key[:idx], "_")
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
