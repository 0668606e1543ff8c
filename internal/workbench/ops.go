package workbench

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/tripplan/internal/model"
)

// OpKind names an in-flight network operation.
type OpKind string

const (
	OpLoad     OpKind = "load"
	OpGenerate OpKind = "generate"
	OpSave     OpKind = "save"
	OpDelete   OpKind = "delete"
)

// Op is a handle to an in-flight operation. It is bound to the workbench
// state that issued it: once that state is left, its result no longer
// changes the workbench.
type Op struct {
	ID     ulid.ULID
	Kind   OpKind
	Target model.ID // record id for save-as-update and delete

	session uint64 // session epoch at issue
	draft   uint64 // draft epoch at issue; zero for load and delete
	cancel  context.CancelFunc
}

// Completion carries the outcome of an Op back to the loop owner.
type Completion struct {
	op *Op

	preview *model.Preview
	record  *model.Itinerary
	records []model.Itinerary
	err     error // the operation itself failed
	listErr error // the operation succeeded but the follow-up reload failed
}

// Op returns the operation this completion belongs to.
func (c Completion) Op() *Op { return c.op }

type ticketSource struct {
	mu      sync.Mutex
	entropy *rand.Rand
}

func newTicketSource() *ticketSource {
	return &ticketSource{entropy: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (t *ticketSource) next() ulid.ULID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), t.entropy)
}

// start registers op and runs fn in its own goroutine. The result is handed
// to the loop owner through the completions channel.
func (w *Workbench) start(ctx context.Context, kind OpKind, target model.ID, draftEpoch uint64, fn func(ctx context.Context, c *Completion)) *Op {
	opCtx, cancel := context.WithCancel(ctx)
	op := &Op{
		ID:      w.tickets.next(),
		Kind:    kind,
		Target:  target,
		session: w.sessionEpoch,
		draft:   draftEpoch,
		cancel:  cancel,
	}
	w.ops[op.ID] = op
	w.logger.Debug("op started",
		zap.String("op", string(kind)),
		zap.Stringer("ticket", op.ID),
		zap.String("target", target.String()))

	go func() {
		c := Completion{op: op}
		fn(opCtx, &c)
		select {
		case w.done <- c:
		case <-w.closed:
		}
	}()
	return op
}

// reloadAfter runs the full list reload that follows a successful mutation.
func (w *Workbench) reloadAfter(ctx context.Context, token string, c *Completion) {
	records, err := w.gw.List(ctx, token)
	if err != nil {
		c.listErr = err
		return
	}
	c.records = records
}
