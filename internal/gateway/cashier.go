package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/pos-terminal-go/internal/cart"
)

const (
	pathSearch    = "/cashier/buscar-producto/"
	pathAdd       = "/cashier/agregar-al-carrito/"
	pathAdjust    = "/cashier/ajustar-cantidad/"
	pathConfirm   = "/cashier/"
	pathClearCart = "/cashier/limpiar-carrito/"
	pathClose     = "/cashier/cerrar_caja/"
)

// Product is a search result. The server sends prices as decimal strings.
type Product struct {
	ID                int             `json:"id"`
	Name              string          `json:"nombre"`
	UnitPrice         decimal.Decimal `json:"precio_venta"`
	Stock             int             `json:"stock"`
	AvailableHere     bool            `json:"en_sucursal"`
	AllowWithoutStock bool            `json:"permitir_venta_sin_stock"`
}

// Sellable reports whether the product can be added to the cart from this
// register: it must belong to this branch, and either have stock or allow
// sale without it. Checked before any add request is sent.
func (p Product) Sellable() bool {
	return p.AvailableHere && (p.Stock > 0 || p.AllowWithoutStock)
}

// Snapshot is the full cart state the server returns after any mutating
// call, plus its optional informational message.
type Snapshot struct {
	Message string
	Lines   []cart.Line
}

// ConfirmRequest carries everything the sale-confirmation endpoint needs.
type ConfirmRequest struct {
	Lines             []cart.Line     `json:"carrito"`
	SaleType          string          `json:"tipo_venta"`
	PaymentMethod     string          `json:"forma_pago"`
	AmountTendered    decimal.Decimal `json:"cliente_paga"`
	TransactionNumber string          `json:"numero_transaccion"`
	BankName          string          `json:"banco"`
	RegisterID        string          `json:"caja_id,omitempty"`
}

// wireLine decodes a snapshot line; the sale-without-stock flag defaults to
// true when the server omits it.
type wireLine struct {
	ProductID         int             `json:"producto_id"`
	Name              string          `json:"nombre"`
	UnitPrice         decimal.Decimal `json:"precio"`
	Quantity          int             `json:"cantidad"`
	Stock             *int            `json:"stock"`
	AllowWithoutStock *bool           `json:"permitir_venta_sin_stock"`
}

func (w wireLine) toLine() cart.Line {
	allow := true
	if w.AllowWithoutStock != nil {
		allow = *w.AllowWithoutStock
	}
	return cart.Line{
		ProductID:         w.ProductID,
		Name:              w.Name,
		UnitPrice:         w.UnitPrice,
		Quantity:          w.Quantity,
		Stock:             w.Stock,
		AllowWithoutStock: allow,
	}
}

func toLines(wire []wireLine) []cart.Line {
	lines := make([]cart.Line, 0, len(wire))
	for _, w := range wire {
		lines = append(lines, w.toLine())
	}
	return lines
}

// SearchProducts queries by name or barcode, scoped to this register's
// branch.
func (c *Client) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	q := url.Values{}
	q.Set("q", query)
	if c.registerID != "" {
		q.Set("caja_id", c.registerID)
	}

	var resp struct {
		Products []Product `json:"productos"`
	}
	if err := c.doJSON(ctx, http.MethodGet, pathSearch, q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// AddToCart adds one unit of a product and returns the resulting snapshot.
func (c *Client) AddToCart(ctx context.Context, productID int) (Snapshot, error) {
	body := struct {
		ProductID  int    `json:"producto_id"`
		RegisterID string `json:"caja_id,omitempty"`
	}{productID, c.registerID}

	var resp struct {
		Message string     `json:"mensaje"`
		Cart    []wireLine `json:"carrito"`
	}
	if err := c.doJSON(ctx, http.MethodPost, pathAdd, "", body, &resp); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Message: resp.Message, Lines: toLines(resp.Cart)}, nil
}

// AdjustQuantity applies a signed quantity delta to one product. The server
// decides whether a non-positive result removes the line.
func (c *Client) AdjustQuantity(ctx context.Context, productID, delta int) (Snapshot, error) {
	body := struct {
		ProductID  int    `json:"producto_id"`
		Delta      int    `json:"cantidad"`
		RegisterID string `json:"caja_id,omitempty"`
	}{productID, delta, c.registerID}

	var resp struct {
		Message string     `json:"mensaje"`
		Cart    []wireLine `json:"carrito"`
	}
	if err := c.doJSON(ctx, http.MethodPost, pathAdjust, "", body, &resp); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Message: resp.Message, Lines: toLines(resp.Cart)}, nil
}

// ConfirmSale persists the sale and returns the report URL.
func (c *Client) ConfirmSale(ctx context.Context, req ConfirmRequest) (string, error) {
	if req.RegisterID == "" {
		req.RegisterID = c.registerID
	}

	var resp struct {
		Success   bool   `json:"success"`
		ReportURL string `json:"reporte_url"`
	}
	if err := c.doJSON(ctx, http.MethodPost, pathConfirm, "", req, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &RejectionError{Status: http.StatusOK, Message: "sale was not confirmed"}
	}
	return resp.ReportURL, nil
}

// ClearCart empties the server-side cart.
func (c *Client) ClearCart(ctx context.Context) error {
	body := struct {
		RegisterID string `json:"caja_id,omitempty"`
	}{c.registerID}
	return c.doJSON(ctx, http.MethodPost, pathClearCart, "", body, nil)
}

// CloseRegister closes the register and returns the detail URL to navigate
// to.
func (c *Client) CloseRegister(ctx context.Context) (string, error) {
	body := struct {
		RegisterID string `json:"caja_id,omitempty"`
	}{c.registerID}

	var resp struct {
		Success   bool   `json:"success"`
		DetailURL string `json:"detalle_url"`
	}
	if err := c.doJSON(ctx, http.MethodPost, pathClose, "", body, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &RejectionError{Status: http.StatusOK, Message: "register was not closed"}
	}
	return resp.DetailURL, nil
}
