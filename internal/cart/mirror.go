// Package cart holds the terminal's local copy of the server-side cart. The
// server owns the cart; the mirror is rebuilt wholesale from every snapshot
// it returns and is never incremented locally.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Line is one product line of a cart snapshot. The JSON tags match the
// cashier server's wire names; Stock is nil when the server omits it, and a
// line without an explicit flag is assumed sellable without stock.
type Line struct {
	ProductID         int             `json:"producto_id"`
	Name              string          `json:"nombre"`
	UnitPrice         decimal.Decimal `json:"precio"`
	Quantity          int             `json:"cantidad"`
	Stock             *int            `json:"stock,omitempty"`
	AllowWithoutStock bool            `json:"permitir_venta_sin_stock"`
}

// Subtotal is quantity times unit price.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Mirror is an ordered productID -> Line mapping. Replace is the only way
// its contents change, which keeps it drift-free no matter how many
// adjustments are in flight: the last applied snapshot always wins.
//
// Debounce timers fire on their own goroutines, so access is mutex-guarded.
type Mirror struct {
	mu    sync.RWMutex
	lines []Line
	index map[int]int // productID -> position in lines
}

func NewMirror() *Mirror {
	return &Mirror{index: make(map[int]int)}
}

// Replace discards the previous contents and rebuilds the mirror from the
// snapshot, preserving snapshot order. A nil snapshot empties the mirror.
func (m *Mirror) Replace(snapshot []Line) {
	lines := make([]Line, len(snapshot))
	copy(lines, snapshot)
	index := make(map[int]int, len(lines))
	for i, l := range lines {
		index[l.ProductID] = i
	}

	m.mu.Lock()
	m.lines = lines
	m.index = index
	m.mu.Unlock()
}

// Total recomputes the cart total on every call; it is never cached.
func (m *Mirror) Total() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero
	for _, l := range m.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (m *Mirror) IsEmpty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lines) == 0
}

func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lines)
}

// Quantity returns the current quantity for a product, 0 if absent.
func (m *Mirror) Quantity(productID int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i, ok := m.index[productID]; ok {
		return m.lines[i].Quantity
	}
	return 0
}

// Lines returns a copy of the current lines in snapshot order.
func (m *Mirror) Lines() []Line {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Line, len(m.lines))
	copy(out, m.lines)
	return out
}
