package entity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/trezcool/darasa/core"
)

// Phase is the controller's interaction state. At most one confirm-gated
// operation may be pending at a time.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseDraftOpen
	PhaseConfirmPending
)

type (
	// Draft is the single in-flight create/edit payload.
	Draft[R Record] struct {
		Record R
		isNew  bool
	}

	// Deps bundles the collaborators every controller needs.
	Deps struct {
		Session   *core.Session
		Notifier  core.Notifier
		Confirmer core.Confirmer
		Logger    core.Logger
	}

	// Controller mediates between a remote collection resource and a
	// list-oriented UI. The server's snapshot is the source of truth:
	// every confirmed mutation triggers a full re-fetch, never a local
	// patch. Operations report failures through the Notifier instead of
	// returning errors; each failure is terminal for that user action.
	Controller[R Record] struct {
		schema Schema[R]
		gw     Gateway[R]
		deps   Deps

		mu       sync.Mutex
		phase    Phase
		items    []R
		query    string
		visible  []R
		stale    bool
		selected map[int]struct{}
		draft    *Draft[R]

		// cancels a pending confirm wait when the draft/modal is closed
		confirmCancel context.CancelFunc
	}
)

func NewController[R Record](schema Schema[R], gw Gateway[R], deps Deps) *Controller[R] {
	return &Controller[R]{
		schema:   schema,
		gw:       gw,
		deps:     deps,
		selected: make(map[int]struct{}),
	}
}

func (c *Controller[R]) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Refresh replaces the whole item set with the server's current snapshot.
// On failure the prior items stay available (stale-but-available) and the
// user is notified.
func (c *Controller[R]) Refresh(ctx context.Context) {
	c.mu.Lock()
	if c.phase == PhaseLoading {
		c.mu.Unlock()
		return
	}
	prev := c.phase
	c.phase = PhaseLoading
	c.mu.Unlock()

	items, err := c.gw.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = prev
	if err != nil {
		fErr := &FetchError{Entity: c.schema.Plural, Err: err}
		c.deps.Logger.Error(fErr.Error(), fErr)
		c.deps.Notifier.Error("could not load " + c.schema.Plural)
		return
	}
	c.replaceItems(items)
}

// replaceItems swaps in a fresh snapshot, prunes selections referring to
// records that no longer exist, and invalidates the filtered view.
// callers must hold c.mu.
func (c *Controller[R]) replaceItems(items []R) {
	c.items = items
	ids := make(map[int]struct{}, len(items))
	for _, it := range items {
		ids[it.EntityID()] = struct{}{}
	}
	for id := range c.selected {
		if _, ok := ids[id]; !ok {
			delete(c.selected, id)
		}
	}
	c.stale = true
}

func (c *Controller[R]) Items() []R {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]R(nil), c.items...)
}

// SetQuery updates the search string and recomputes the filtered view
// synchronously. No network call.
func (c *Controller[R]) SetQuery(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = core.CleanString(text)
	c.stale = true
	c.recompute()
}

func (c *Controller[R]) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// VisibleItems returns the current filtered view: items whose search text
// contains the query, case-insensitively. A pure projection of (items, query).
func (c *Controller[R]) VisibleItems() []R {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale {
		c.recompute()
	}
	return append([]R(nil), c.visible...)
}

// callers must hold c.mu.
func (c *Controller[R]) recompute() {
	c.stale = false
	if c.query == "" {
		c.visible = append([]R(nil), c.items...)
		return
	}
	q := strings.ToLower(c.query)
	visible := make([]R, 0, len(c.items))
	for _, it := range c.items {
		for _, txt := range it.SearchText() {
			if strings.Contains(strings.ToLower(txt), q) {
				visible = append(visible, it)
				break
			}
		}
	}
	c.visible = visible
}

// ToggleSelect flips membership of id in the selection; unknown ids are
// ignored.
func (c *Controller[R]) ToggleSelect(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasItem(id) {
		return
	}
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
	} else {
		c.selected[id] = struct{}{}
	}
}

// SelectAll selects every record in the filtered view (not in the full set)
// or clears the selection.
func (c *Controller[R]) SelectAll(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = make(map[int]struct{})
	if !on {
		return
	}
	if c.stale {
		c.recompute()
	}
	for _, it := range c.visible {
		c.selected[it.EntityID()] = struct{}{}
	}
}

func (c *Controller[R]) SelectedIDs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// callers must hold c.mu.
func (c *Controller[R]) hasItem(id int) bool {
	for _, it := range c.items {
		if it.EntityID() == id {
			return true
		}
	}
	return false
}

// OpenCreate opens an empty draft. No-op if a draft is already open or the
// session lacks the create capability.
func (c *Controller[R]) OpenCreate() {
	if !c.allowed(c.schema.CreatePerm) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft != nil {
		return
	}
	var zero R
	c.draft = &Draft[R]{Record: zero, isNew: true}
	c.phase = PhaseDraftOpen
}

// OpenEdit opens a draft holding a copy of the record matching id.
func (c *Controller[R]) OpenEdit(id int) {
	if !c.allowed(c.schema.EditPerm) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft != nil {
		return
	}
	for _, it := range c.items {
		if it.EntityID() == id {
			rec := it
			c.draft = &Draft[R]{Record: rec}
			c.phase = PhaseDraftOpen
			return
		}
	}
}

func (c *Controller[R]) allowed(perm string) bool {
	if perm == "" || c.deps.Session == nil || c.deps.Session.Can(perm) {
		return true
	}
	c.deps.Notifier.Error("permission denied")
	return false
}

// Draft returns the open draft record, if any.
func (c *Controller[R]) Draft() (R, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		var zero R
		return zero, false
	}
	return c.draft.Record, true
}

// SetDraft replaces the open draft's payload with the form's current values.
func (c *Controller[R]) SetDraft(rec R) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return
	}
	c.draft.Record = rec
}

// CloseDraft discards the draft and cancels any pending confirm wait;
// no mutation fires after this returns.
func (c *Controller[R]) CloseDraft() {
	c.mu.Lock()
	cancel := c.confirmCancel
	c.draft = nil
	if c.phase == PhaseDraftOpen {
		c.phase = PhaseIdle
	}
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SubmitDraft validates the draft, asks for confirmation, then issues a
// create or update and re-fetches the collection. An invalid draft performs
// zero network calls and stays open; so does a declined confirmation or a
// rejected submit.
func (c *Controller[R]) SubmitDraft(ctx context.Context) {
	c.mu.Lock()
	if c.draft == nil || c.phase == PhaseConfirmPending {
		c.mu.Unlock()
		return
	}
	rec, isNew := c.draft.Record, c.draft.isNew
	if err := c.schema.validate(rec); err != nil {
		c.mu.Unlock()
		c.notifyInvalid(err)
		return
	}
	cctx, ok := c.beginConfirm(ctx)
	c.mu.Unlock()
	if !ok {
		return
	}

	confirmed := c.deps.Confirmer.Confirm(cctx, fmt.Sprintf("Save this %s?", c.schema.Name))

	c.mu.Lock()
	c.endConfirm()
	if c.draft == nil { // closed while awaiting confirmation
		c.phase = PhaseIdle
		c.mu.Unlock()
		return
	}
	if !confirmed {
		c.phase = PhaseDraftOpen
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	var err error
	if isNew {
		_, err = c.gw.Create(ctx, rec)
	} else {
		_, err = c.gw.Update(ctx, rec)
	}

	c.mu.Lock()
	if err != nil {
		c.phase = PhaseDraftOpen // draft stays open so the user can retry
		c.mu.Unlock()
		sErr := &SubmitError{Entity: c.schema.Name, Err: err}
		c.deps.Logger.Error(sErr.Error(), sErr)
		c.deps.Notifier.Error("could not save " + c.schema.Name)
		return
	}
	c.draft = nil
	c.phase = PhaseIdle
	c.mu.Unlock()

	c.deps.Notifier.Success(c.schema.Name + " saved")
	c.Refresh(ctx)
}

func (c *Controller[R]) notifyInvalid(err error) {
	if vErr, ok := err.(*core.ValidationError); ok && len(vErr.Fields) > 0 {
		fld := vErr.Fields[0]
		c.deps.Notifier.Error(fld.Field + ": " + fld.Error)
		return
	}
	c.deps.Notifier.Error(err.Error())
}

// DeleteOne confirms, deletes a single record and re-fetches.
func (c *Controller[R]) DeleteOne(ctx context.Context, id int) {
	if !c.allowed(c.schema.DeletePerm) {
		return
	}
	c.mu.Lock()
	if !c.hasItem(id) {
		c.mu.Unlock()
		return
	}
	cctx, ok := c.beginConfirm(ctx)
	c.mu.Unlock()
	if !ok {
		return
	}

	confirmed := c.deps.Confirmer.Confirm(cctx, fmt.Sprintf("Delete this %s?", c.schema.Name))

	c.mu.Lock()
	c.endConfirm()
	c.mu.Unlock()
	if !confirmed {
		return
	}

	if err := c.gw.Delete(ctx, id); err != nil {
		dErr := &DeleteError{Entity: c.schema.Name, ID: id, Err: err}
		c.deps.Logger.Error(dErr.Error(), dErr)
		c.deps.Notifier.Error("could not delete " + c.schema.Name)
		return
	}
	c.deps.Notifier.Success(c.schema.Name + " deleted")
	c.Refresh(ctx)
}

// DeleteSelected confirms and bulk-deletes the current selection in a single
// call. An empty selection performs zero network calls. The batch is atomic:
// a failure reports the whole batch as failed.
func (c *Controller[R]) DeleteSelected(ctx context.Context) {
	if !c.allowed(c.schema.DeletePerm) {
		return
	}
	c.mu.Lock()
	if len(c.selected) == 0 {
		c.mu.Unlock()
		c.deps.Notifier.Info("no " + c.schema.Plural + " selected")
		return
	}
	ids := make([]int, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	cctx, ok := c.beginConfirm(ctx)
	c.mu.Unlock()
	if !ok {
		return
	}

	confirmed := c.deps.Confirmer.Confirm(cctx, fmt.Sprintf("Delete %d %s?", len(ids), c.schema.Plural))

	c.mu.Lock()
	c.endConfirm()
	c.mu.Unlock()
	if !confirmed {
		return
	}

	if err := c.gw.DeleteMany(ctx, ids); err != nil {
		bErr := &BulkOperationError{Entity: c.schema.Plural, IDs: ids, Err: err}
		c.deps.Logger.Error(bErr.Error(), bErr)
		c.deps.Notifier.Error("could not delete selected " + c.schema.Plural)
		return
	}

	c.mu.Lock()
	c.selected = make(map[int]struct{})
	c.mu.Unlock()

	c.deps.Notifier.Success(fmt.Sprintf("%d %s deleted", len(ids), c.schema.Plural))
	c.Refresh(ctx)
}

// beginConfirm claims the exclusive confirmation gate.
// callers must hold c.mu; a false return means another confirm is pending.
func (c *Controller[R]) beginConfirm(ctx context.Context) (context.Context, bool) {
	if c.phase == PhaseConfirmPending {
		return nil, false
	}
	c.phase = PhaseConfirmPending
	cctx, cancel := context.WithCancel(ctx)
	c.confirmCancel = cancel
	return cctx, true
}

// endConfirm releases the gate. callers must hold c.mu.
func (c *Controller[R]) endConfirm() {
	if c.confirmCancel != nil {
		c.confirmCancel()
		c.confirmCancel = nil
	}
	c.phase = PhaseIdle
}
