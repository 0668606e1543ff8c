// Package workbench is the itinerary form/preview/detail state machine. It
// reconciles a draft, an ephemeral generated preview and persistence
// (create vs. update) into one flow.
//
// A Workbench is driven by a single loop goroutine: every exported method
// except Completions must be called from that goroutine. Network calls run
// in their own goroutines and report back through Completions; the loop
// applies each with Apply, or uses Wait to block on one operation.
package workbench

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/tripplan/internal/apperr"
	"github.com/rcliao/tripplan/internal/logging"
	"github.com/rcliao/tripplan/internal/model"
	"github.com/rcliao/tripplan/internal/store"
)

var (
	// ErrBusy is returned when the same action is already in flight.
	ErrBusy = errors.New("workbench: operation already in progress")
	// ErrNoPreview is returned by Save before a preview was generated.
	ErrNoPreview = errors.New("workbench: generate a preview before saving")
	// ErrSuperseded is returned for a result that arrived after the state
	// that requested it was left. The result was not applied.
	ErrSuperseded = errors.New("workbench: result discarded, the view has changed")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("workbench: closed")
)

// TransitionError reports an action that is not available in the current state.
type TransitionError struct {
	Action string
	From   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("workbench: cannot %s while %s", e.Action, e.From)
}

// Gateway is the remote service as seen by the workbench.
type Gateway interface {
	Generate(ctx context.Context, req model.GenerateRequest, token string) (*model.Preview, error)
	Create(ctx context.Context, in model.ItineraryInput, token string) (*model.Itinerary, error)
	Update(ctx context.Context, id model.ID, in model.ItineraryInput, token string) (*model.Itinerary, error)
	List(ctx context.Context, token string) ([]model.Itinerary, error)
	Delete(ctx context.Context, id model.ID, token string) error
}

// Session supplies the bearer token and is told when the server rejects it.
type Session interface {
	Token() (string, bool)
	Expire(ctx context.Context, cause error)
}

// Confirmer asks the traveler to confirm a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Workbench coordinates drafting, previewing and persisting itineraries.
type Workbench struct {
	gw     Gateway
	sess   Session
	cache  *store.Itineraries
	logger *zap.Logger

	state        State
	loading      bool
	deleting     map[model.ID]bool
	sessionEpoch uint64
	draftEpoch   uint64
	lastSaved    *model.Itinerary

	tickets   *ticketSource
	ops       map[ulid.ULID]*Op
	done      chan Completion
	closed    chan struct{}
	closeOnce sync.Once
}

// New returns a workbench in the SignedOut state. Call Enter once the
// session is authenticated.
func New(gw Gateway, sess Session, cache *store.Itineraries, logger *zap.Logger) *Workbench {
	return &Workbench{
		gw:       gw,
		sess:     sess,
		cache:    cache,
		logger:   logging.OrNop(logger),
		state:    SignedOut{},
		deleting: map[model.ID]bool{},
		tickets:  newTicketSource(),
		ops:      map[ulid.ULID]*Op{},
		done:     make(chan Completion, 8),
		closed:   make(chan struct{}),
	}
}

// State returns a snapshot of the current state.
func (w *Workbench) State() State { return w.state.clone() }

// Loading reports whether a list load is in flight.
func (w *Workbench) Loading() bool { return w.loading }

// Deleting reports whether a delete of id is in flight.
func (w *Workbench) Deleting(id model.ID) bool { return w.deleting[id] }

// Itineraries returns the cached records.
func (w *Workbench) Itineraries() []model.Itinerary { return w.cache.All() }

// LastSaved returns the record returned by the most recent successful save.
func (w *Workbench) LastSaved() (model.Itinerary, bool) {
	if w.lastSaved == nil {
		return model.Itinerary{}, false
	}
	return *w.lastSaved, true
}

// Completions delivers results of in-flight operations.
func (w *Workbench) Completions() <-chan Completion { return w.done }

func (w *Workbench) setState(s State) {
	from := w.state.Name()
	if d, ok := w.state.(*Drafting); ok {
		if next, same := s.(*Drafting); !same || next != d {
			w.leaveDraft(d)
		}
	}
	w.state = s
	w.logger.Debug("transition", zap.String("from", from), zap.String("to", s.Name()))
}

// leaveDraft cancels a draft's pending generate. A pending save is left to
// finish so the cache still learns about the new record; its result no
// longer moves the workbench.
func (w *Workbench) leaveDraft(d *Drafting) {
	for _, op := range w.ops {
		if op.draft == d.epoch && op.Kind == OpGenerate {
			op.cancel()
		}
	}
}

func (w *Workbench) token(action string) (string, error) {
	if _, out := w.state.(SignedOut); out {
		return "", apperr.New(apperr.KindUnauthorized, action, "not logged in")
	}
	tok, ok := w.sess.Token()
	if !ok {
		w.SignOut()
		return "", apperr.New(apperr.KindUnauthorized, action, "not logged in")
	}
	return tok, nil
}

func (w *Workbench) isClosed() bool {
	select {
	case <-w.closed:
		return true
	default:
		return false
	}
}

// Enter starts the authenticated area: Listing, populated by a full load.
func (w *Workbench) Enter(ctx context.Context) (*Op, error) {
	if w.isClosed() {
		return nil, ErrClosed
	}
	if _, out := w.state.(SignedOut); !out {
		return nil, &TransitionError{Action: "enter", From: w.state.Name()}
	}
	if _, ok := w.sess.Token(); !ok {
		return nil, apperr.New(apperr.KindUnauthorized, "enter", "not logged in")
	}
	w.setState(Listing{})
	return w.Reload(ctx)
}

// Reload fetches the full list into the cache.
func (w *Workbench) Reload(ctx context.Context) (*Op, error) {
	tok, err := w.token("load")
	if err != nil {
		return nil, err
	}
	if w.loading {
		return nil, ErrBusy
	}
	w.loading = true
	return w.start(ctx, OpLoad, "", 0, func(ctx context.Context, c *Completion) {
		c.records, c.err = w.gw.List(ctx, tok)
	}), nil
}

// SignOut discards any draft, preview and cached records and refuses further
// actions. In-flight operations are cancelled and their results dropped.
func (w *Workbench) SignOut() {
	if _, out := w.state.(SignedOut); out {
		return
	}
	for _, op := range w.ops {
		op.cancel()
	}
	w.sessionEpoch++
	w.loading = false
	w.lastSaved = nil
	w.deleting = map[model.ID]bool{}
	w.cache.Reset()
	w.setState(SignedOut{})
}

// New opens an empty draft.
func (w *Workbench) New() error {
	switch w.state.(type) {
	case Listing, Viewing:
	default:
		return &TransitionError{Action: "start a new itinerary", From: w.state.Name()}
	}
	w.openDraft(NewDraft())
	return nil
}

// Edit opens a draft populated from the record with id. From Viewing, id may
// be empty to edit the open record.
func (w *Workbench) Edit(id model.ID) error {
	switch s := w.state.(type) {
	case Viewing:
		if id.IsZero() || id == s.Record.ID {
			w.openDraft(DraftFromRecord(s.Record))
			return nil
		}
	case Listing:
	default:
		return &TransitionError{Action: "edit", From: w.state.Name()}
	}
	rec, ok := w.cache.Get(id)
	if !ok {
		return apperr.New(apperr.KindNotFound, "edit", "no itinerary with id "+id.String())
	}
	w.openDraft(DraftFromRecord(rec))
	return nil
}

func (w *Workbench) openDraft(d Draft) {
	w.draftEpoch++
	w.setState(&Drafting{Draft: d, epoch: w.draftEpoch})
}

// Select opens the record with id for viewing.
func (w *Workbench) Select(id model.ID) error {
	if _, ok := w.state.(Listing); !ok {
		return &TransitionError{Action: "select", From: w.state.Name()}
	}
	rec, ok := w.cache.Get(id)
	if !ok {
		return apperr.New(apperr.KindNotFound, "select", "no itinerary with id "+id.String())
	}
	w.setState(Viewing{Record: rec})
	return nil
}

// CloseView returns from Viewing to Listing.
func (w *Workbench) CloseView() error {
	if _, ok := w.state.(Viewing); !ok {
		return &TransitionError{Action: "close", From: w.state.Name()}
	}
	w.setState(Listing{})
	return nil
}

// Cancel discards the draft and preview and returns to Listing, even if a
// generate or save is in flight.
func (w *Workbench) Cancel() error {
	if _, ok := w.state.(*Drafting); !ok {
		return &TransitionError{Action: "cancel", From: w.state.Name()}
	}
	w.setState(Listing{})
	return nil
}

func (w *Workbench) drafting(action string) (*Drafting, error) {
	d, ok := w.state.(*Drafting)
	if !ok {
		return nil, &TransitionError{Action: action, From: w.state.Name()}
	}
	return d, nil
}

// SetDestination edits the draft's destination.
func (w *Workbench) SetDestination(s string) error {
	d, err := w.drafting("edit destination")
	if err != nil {
		return err
	}
	d.Draft.Destination = s
	return nil
}

// SetStartDate edits the draft's start date.
func (w *Workbench) SetStartDate(date model.Date) error {
	d, err := w.drafting("edit start date")
	if err != nil {
		return err
	}
	d.Draft.StartDate = date
	return nil
}

// SetEndDate edits the draft's end date.
func (w *Workbench) SetEndDate(date model.Date) error {
	d, err := w.drafting("edit end date")
	if err != nil {
		return err
	}
	d.Draft.EndDate = date
	return nil
}

// AddInterest appends a blank interest slot.
func (w *Workbench) AddInterest() error {
	d, err := w.drafting("add interest")
	if err != nil {
		return err
	}
	d.Draft.AddInterest()
	return nil
}

// RemoveInterest drops interest slot i; a no-op when only one slot remains.
func (w *Workbench) RemoveInterest(i int) error {
	d, err := w.drafting("remove interest")
	if err != nil {
		return err
	}
	return d.Draft.RemoveInterest(i)
}

// SetInterest replaces interest slot i.
func (w *Workbench) SetInterest(i int, v string) error {
	d, err := w.drafting("edit interest")
	if err != nil {
		return err
	}
	return d.Draft.SetInterest(i, v)
}

// Generate requests a preview for the current draft. The draft itself is
// never changed by generation.
func (w *Workbench) Generate(ctx context.Context) (*Op, error) {
	d, err := w.drafting("generate")
	if err != nil {
		return nil, err
	}
	if d.Busy != BusyNone {
		return nil, ErrBusy
	}
	tok, err := w.token("generate")
	if err != nil {
		return nil, err
	}

	req := d.Draft.GenerateRequest()
	d.Busy = BusyGenerating
	return w.start(ctx, OpGenerate, "", d.epoch, func(ctx context.Context, c *Completion) {
		c.preview, c.err = w.gw.Generate(ctx, req, tok)
	}), nil
}

// Save persists the draft with the current preview as its generated content:
// create when the draft is new, update when it edits a record. On success the
// cache is reloaded and the workbench returns to Listing.
func (w *Workbench) Save(ctx context.Context) (*Op, error) {
	d, err := w.drafting("save")
	if err != nil {
		return nil, err
	}
	if d.Preview == nil {
		return nil, ErrNoPreview
	}
	if d.Busy != BusyNone {
		return nil, ErrBusy
	}
	tok, err := w.token("save")
	if err != nil {
		return nil, err
	}

	in := d.Draft.Input(*d.Preview)
	id := d.Draft.EditingID
	d.Busy = BusySaving
	return w.start(ctx, OpSave, id, d.epoch, func(ctx context.Context, c *Completion) {
		if id.IsZero() {
			c.record, c.err = w.gw.Create(ctx, in, tok)
		} else {
			c.record, c.err = w.gw.Update(ctx, id, in, tok)
		}
		if c.err == nil {
			w.reloadAfter(ctx, tok, c)
		}
	}), nil
}

// Delete removes the record with id after confirmation. Declining returns a
// nil Op and no error. From Viewing, id may be empty to delete the open record.
func (w *Workbench) Delete(ctx context.Context, id model.ID, confirm Confirmer) (*Op, error) {
	switch s := w.state.(type) {
	case Listing:
	case Viewing:
		if id.IsZero() {
			id = s.Record.ID
		}
	default:
		return nil, &TransitionError{Action: "delete", From: w.state.Name()}
	}
	if id.IsZero() {
		return nil, apperr.New(apperr.KindValidation, "delete", "id is required")
	}
	if w.deleting[id] {
		return nil, ErrBusy
	}
	tok, err := w.token("delete")
	if err != nil {
		return nil, err
	}

	prompt := "Are you sure you want to delete this itinerary?"
	if rec, ok := w.cache.Get(id); ok {
		prompt = fmt.Sprintf("Are you sure you want to delete the %s itinerary?", rec.Destination)
	}
	if confirm == nil || !confirm.Confirm(prompt) {
		w.logger.Debug("delete declined", zap.String("id", id.String()))
		return nil, nil
	}

	w.deleting[id] = true
	return w.start(ctx, OpDelete, id, 0, func(ctx context.Context, c *Completion) {
		c.err = w.gw.Delete(ctx, id, tok)
		if c.err == nil {
			w.reloadAfter(ctx, tok, c)
		}
	}), nil
}

// Apply folds a completion into the workbench and returns the failure to
// surface, if any. ErrSuperseded means the result arrived too late to matter.
func (w *Workbench) Apply(ctx context.Context, c Completion) error {
	op := c.op
	if _, ok := w.ops[op.ID]; !ok {
		return ErrSuperseded
	}
	delete(w.ops, op.ID)
	op.cancel()

	log := w.logger.With(zap.String("op", string(op.Kind)), zap.Stringer("ticket", op.ID))

	if op.session != w.sessionEpoch {
		log.Debug("dropping result from an ended session")
		return ErrSuperseded
	}

	// A successful mutation's reload reaches the cache even when the view
	// that asked for it is gone.
	if c.records != nil || (c.err == nil && c.listErr == nil && op.Kind != OpGenerate) {
		w.cache.Replace(c.records)
	}

	if errors.Is(c.err, apperr.ErrUnauthorized) || errors.Is(c.listErr, apperr.ErrUnauthorized) {
		cause := c.err
		if cause == nil {
			cause = c.listErr
		}
		log.Warn("session rejected", zap.Error(cause))
		w.sess.Expire(ctx, cause)
		w.SignOut()
		return cause
	}

	var err error
	switch op.Kind {
	case OpLoad:
		err = w.applyLoad(c)
	case OpGenerate:
		err = w.applyGenerate(c)
	case OpSave:
		err = w.applySave(c)
	case OpDelete:
		err = w.applyDelete(c)
	}
	if err != nil && !errors.Is(err, ErrSuperseded) {
		log.Warn("operation failed", zap.Error(err))
	}
	return err
}

func (w *Workbench) applyLoad(c Completion) error {
	w.loading = false
	return c.err
}

// currentDraft returns the Drafting state op was issued from, if still current.
func (w *Workbench) currentDraft(op *Op) (*Drafting, bool) {
	d, ok := w.state.(*Drafting)
	if !ok || d.epoch != op.draft {
		return nil, false
	}
	return d, true
}

func (w *Workbench) applyGenerate(c Completion) error {
	d, ok := w.currentDraft(c.op)
	if !ok {
		return ErrSuperseded
	}
	d.Busy = BusyNone
	if c.err != nil {
		d.Preview = nil
		return c.err
	}
	d.Preview = c.preview
	return nil
}

func (w *Workbench) applySave(c Completion) error {
	d, ok := w.currentDraft(c.op)
	if !ok {
		return ErrSuperseded
	}
	d.Busy = BusyNone
	if c.err != nil {
		return c.err
	}
	w.lastSaved = c.record
	w.setState(Listing{})
	return c.listErr
}

func (w *Workbench) applyDelete(c Completion) error {
	delete(w.deleting, c.op.Target)
	if c.err != nil {
		return c.err
	}
	if v, ok := w.state.(Viewing); ok && v.Record.ID == c.op.Target {
		w.setState(Listing{})
	}
	return c.listErr
}

// Wait applies completions until op resolves and returns its outcome.
// Completions of other operations are applied along the way.
func (w *Workbench) Wait(ctx context.Context, op *Op) error {
	if op == nil {
		return nil
	}
	for {
		select {
		case c := <-w.done:
			err := w.Apply(ctx, c)
			if c.op == op {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-w.closed:
			return ErrClosed
		}
	}
}

// Close cancels all in-flight operations. The workbench is unusable afterwards.
func (w *Workbench) Close() {
	w.closeOnce.Do(func() {
		for _, op := range w.ops {
			op.cancel()
		}
		close(w.closed)
	})
}
