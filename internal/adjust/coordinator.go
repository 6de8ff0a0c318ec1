// Package adjust serializes quantity-delta requests against the cashier
// server. Button clicks send immediately; free-text quantity edits are
// debounced per product so a burst of keystrokes collapses into one request
// carrying the net change.
package adjust

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/andreasstove999/pos-terminal-go/internal/cart"
	"github.com/andreasstove999/pos-terminal-go/internal/gateway"
)

// DefaultDebounce is the settling delay for manual quantity edits.
const DefaultDebounce = 450 * time.Millisecond

var ErrNothingToUndo = errors.New("nothing to undo")

// Adjuster is the slice of the gateway the coordinator needs.
type Adjuster interface {
	AdjustQuantity(ctx context.Context, productID, delta int) (gateway.Snapshot, error)
}

// Events receives the outcome of every settled adjustment. The terminal
// controller implements it to re-render the cart or surface the error.
type Events interface {
	CartReplaced(snap gateway.Snapshot)
	AdjustFailed(productID int, err error)
}

// LastAction is the most recent server-confirmed delta, kept for single-level
// undo.
type LastAction struct {
	ProductID int
	Delta     int
}

// productState tracks the per-product invariants: at most one pending
// debounce timer and at most one in-flight request. A delta arriving while a
// request is in flight is stored as the single queued latest-known delta and
// sent when the response settles.
type productState struct {
	timer     *time.Timer
	editSeq   uint64 // bumped on every re-arm so a stale timer firing late is ignored
	inFlight  bool
	queued    int
	hasQueued bool
}

type Coordinator struct {
	gw     Adjuster
	mirror *cart.Mirror
	events Events
	delay  time.Duration
	logger *log.Logger

	mu       sync.Mutex
	products map[int]*productState
	last     *LastAction
}

func NewCoordinator(gw Adjuster, mirror *cart.Mirror, events Events, delay time.Duration, logger *log.Logger) *Coordinator {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Coordinator{
		gw:       gw,
		mirror:   mirror,
		events:   events,
		delay:    delay,
		logger:   logger,
		products: make(map[int]*productState),
	}
}

// ButtonDelta handles the +1/-1 buttons: the delta goes out immediately, no
// debounce. Blocks until the request settles unless one is already in flight
// for this product, in which case the delta is queued.
func (c *Coordinator) ButtonDelta(ctx context.Context, productID, delta int) {
	c.dispatch(ctx, productID, delta)
}

// ManualEdit handles a typed-in quantity. The delta is computed against the
// mirror's current quantity; a target of zero or less removes the full
// current quantity rather than overshooting. The send is debounced, and a
// newer edit for the same product replaces the pending one.
func (c *Coordinator) ManualEdit(ctx context.Context, productID, newQuantity int) {
	current := c.mirror.Quantity(productID)
	delta := newQuantity - current
	if newQuantity <= 0 {
		delta = -current
	}
	if delta == 0 {
		return
	}

	c.mu.Lock()
	st := c.state(productID)
	if st.timer != nil {
		st.timer.Stop()
	}
	st.editSeq++
	seq := st.editSeq
	st.timer = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		if st.editSeq != seq {
			// Superseded by a newer edit while this timer was firing.
			c.mu.Unlock()
			return
		}
		st.timer = nil
		c.mu.Unlock()
		c.dispatch(ctx, productID, delta)
	})
	c.mu.Unlock()
}

// Undo sends the inverse of the last confirmed delta through the immediate
// path. The slot is cleared whether or not the inverse succeeds, so a failed
// undo never retries on its own.
func (c *Coordinator) Undo(ctx context.Context) error {
	c.mu.Lock()
	if c.last == nil {
		c.mu.Unlock()
		return ErrNothingToUndo
	}
	action := *c.last
	c.last = nil
	c.mu.Unlock()

	c.dispatch(ctx, action.ProductID, -action.Delta)

	// The undo itself is not undoable.
	c.mu.Lock()
	c.last = nil
	c.mu.Unlock()
	return nil
}

// Last returns the undoable action, nil if there is none.
func (c *Coordinator) Last() *LastAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	a := *c.last
	return &a
}

func (c *Coordinator) state(productID int) *productState {
	st, ok := c.products[productID]
	if !ok {
		st = &productState{}
		c.products[productID] = st
	}
	return st
}

func (c *Coordinator) dispatch(ctx context.Context, productID, delta int) {
	c.mu.Lock()
	st := c.state(productID)
	if st.inFlight {
		// Newest intent wins; it goes out when the in-flight request settles.
		st.queued, st.hasQueued = delta, true
		c.mu.Unlock()
		return
	}
	st.inFlight = true
	c.mu.Unlock()

	c.send(ctx, productID, delta)
}

func (c *Coordinator) send(ctx context.Context, productID, delta int) {
	snap, err := c.gw.AdjustQuantity(ctx, productID, delta)
	if err != nil {
		c.logger.Printf("adjust product %d by %+d: %v", productID, delta, err)
		c.events.AdjustFailed(productID, err)
	} else {
		c.mirror.Replace(snap.Lines)
		c.mu.Lock()
		c.last = &LastAction{ProductID: productID, Delta: delta}
		c.mu.Unlock()
		c.events.CartReplaced(snap)
	}

	c.mu.Lock()
	st := c.state(productID)
	st.inFlight = false
	if !st.hasQueued {
		c.mu.Unlock()
		return
	}
	next := st.queued
	st.hasQueued = false
	st.inFlight = true
	c.mu.Unlock()

	c.send(ctx, productID, next)
}
