// Package terminal is the operator-facing side of the register: it turns
// keyboard commands into gateway calls and renders the mirrored cart after
// every server-confirmed change.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/andreasstove999/pos-terminal-go/internal/adjust"
	"github.com/andreasstove999/pos-terminal-go/internal/cart"
	"github.com/andreasstove999/pos-terminal-go/internal/gateway"
	"github.com/andreasstove999/pos-terminal-go/internal/money"
	"github.com/andreasstove999/pos-terminal-go/internal/session"
)

// Gateway is what the controller needs from the server client. Quantity
// adjustments go through the coordinator, sale confirmation through the
// session.
type Gateway interface {
	adjust.Adjuster
	SearchProducts(ctx context.Context, query string) ([]gateway.Product, error)
	AddToCart(ctx context.Context, productID int) (gateway.Snapshot, error)
	CloseRegister(ctx context.Context) (string, error)
}

type Controller struct {
	gw     Gateway
	mirror *cart.Mirror
	coord  *adjust.Coordinator
	sess   *session.Session
	logger *log.Logger
	out    io.Writer

	mu      sync.Mutex
	results map[int]gateway.Product
}

// NewController wires the controller and its adjustment coordinator; the
// controller itself is the coordinator's event sink.
func NewController(gw Gateway, mirror *cart.Mirror, sess *session.Session, debounce time.Duration, logger *log.Logger, out io.Writer) *Controller {
	c := &Controller{
		gw:      gw,
		mirror:  mirror,
		sess:    sess,
		logger:  logger,
		out:     out,
		results: make(map[int]gateway.Product),
	}
	c.coord = adjust.NewCoordinator(gw, mirror, c, debounce, logger)
	return c
}

// CartReplaced implements adjust.Events.
func (c *Controller) CartReplaced(snap gateway.Snapshot) {
	if snap.Message != "" {
		fmt.Fprintln(c.out, snap.Message)
	}
	c.sess.SyncTendered()
	c.renderCart()
}

// AdjustFailed implements adjust.Events.
func (c *Controller) AdjustFailed(productID int, err error) {
	fmt.Fprintf(c.out, "could not adjust product %d: %v\n", productID, err)
}

// Search queries the server and caches the results so products can be added
// by id afterwards.
func (c *Controller) Search(ctx context.Context, query string) error {
	products, err := c.gw.SearchProducts(ctx, query)
	if err != nil {
		return err
	}

	c.mu.Lock()
	for _, p := range products {
		c.results[p.ID] = p
	}
	c.mu.Unlock()

	if len(products) == 0 {
		fmt.Fprintln(c.out, "no products found")
		return nil
	}
	for _, p := range products {
		note := ""
		if !p.AvailableHere {
			note = ", other branch"
		}
		fmt.Fprintf(c.out, "  [%d] %s - $%s (stock: %d%s)\n",
			p.ID, p.Name, money.Format(p.UnitPrice), p.Stock, note)
	}
	return nil
}

// Scan handles barcode input: search by the code and add the first hit.
func (c *Controller) Scan(ctx context.Context, code string) error {
	products, err := c.gw.SearchProducts(ctx, code)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		fmt.Fprintln(c.out, "product not found, scan again")
		return nil
	}

	c.mu.Lock()
	c.results[products[0].ID] = products[0]
	c.mu.Unlock()

	return c.addProduct(ctx, products[0])
}

// Add adds one unit of a previously searched product.
func (c *Controller) Add(ctx context.Context, productID int) error {
	c.mu.Lock()
	p, ok := c.results[productID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown product %d: search for it first", productID)
	}
	return c.addProduct(ctx, p)
}

// addProduct performs the client-side stock guard before any request is
// sent, then replaces the mirror from the server's snapshot.
func (c *Controller) addProduct(ctx context.Context, p gateway.Product) error {
	if !p.Sellable() {
		return fmt.Errorf("%s is out of stock at this branch", p.Name)
	}

	snap, err := c.gw.AddToCart(ctx, p.ID)
	if err != nil {
		return err
	}
	c.mirror.Replace(snap.Lines)
	c.CartReplaced(snap)
	return nil
}

func (c *Controller) Increment(ctx context.Context, productID int) {
	c.coord.ButtonDelta(ctx, productID, 1)
}

func (c *Controller) Decrement(ctx context.Context, productID int) {
	c.coord.ButtonDelta(ctx, productID, -1)
}

func (c *Controller) SetQuantity(ctx context.Context, productID, quantity int) {
	c.coord.ManualEdit(ctx, productID, quantity)
}

func (c *Controller) Undo(ctx context.Context) error {
	err := c.coord.Undo(ctx)
	if errors.Is(err, adjust.ErrNothingToUndo) {
		fmt.Fprintln(c.out, "nothing to undo")
		return nil
	}
	return err
}

// Confirm runs the pre-flight validations and, when they pass, prints the
// summary the operator acknowledges before submission.
func (c *Controller) Confirm() error {
	if err := c.sess.RequestConfirmation(); err != nil {
		return err
	}
	total := c.mirror.Total()
	fmt.Fprintf(c.out, "confirm sale: %s, %s, total $%s, %s\n",
		c.sess.SaleType(), c.sess.PaymentMethod(), money.Format(total), c.changeLabel())
	fmt.Fprintln(c.out, "type 'yes' to confirm, 'cancel' to go back")
	return nil
}

// Submit finishes the confirmed sale. On success the report URLs are printed
// and the terminal is back to building the next sale; on failure the session
// stays at the confirmation step for a retry.
func (c *Controller) Submit(ctx context.Context) error {
	reportURL, err := c.sess.Submit(ctx)
	if err != nil {
		// Back to the confirmation step so 'yes' can retry.
		_ = c.sess.Acknowledge()
		return err
	}

	fmt.Fprintln(c.out, "sale confirmed")
	if reportURL != "" {
		fmt.Fprintf(c.out, "report: %s\n", EmbedReportURL(reportURL))
		fmt.Fprintf(c.out, "print:  %s\n", PrintReportURL(reportURL))
	}
	_ = c.sess.Acknowledge()
	c.renderCart()
	return nil
}

func (c *Controller) CancelConfirm() error {
	return c.sess.Cancel()
}

// CloseRegister closes the register; the caller has already asked the
// operator for confirmation.
func (c *Controller) CloseRegister(ctx context.Context) (string, error) {
	detailURL, err := c.gw.CloseRegister(ctx)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(c.out, "register closed, detail: %s\n", detailURL)
	return detailURL, nil
}

func (c *Controller) renderCart() {
	lines := c.mirror.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(c.out, "cart is empty")
	}
	for _, l := range lines {
		fmt.Fprintf(c.out, "  %3d x %-24s $%s\n", l.Quantity, l.Name, money.Format(l.Subtotal()))
	}
	fmt.Fprintf(c.out, "total: $%s  %s\n", money.Format(c.mirror.Total()), c.changeLabel())
}

// changeLabel renders the tri-state change display: still owed, exact, or
// change due.
func (c *Controller) changeLabel() string {
	ch := c.sess.Change()
	switch ch.Sign {
	case money.Negative:
		return "change: -$" + money.Format(ch.Amount)
	case money.Positive:
		return "change: $" + money.Format(ch.Amount)
	default:
		return "change: $0"
	}
}
