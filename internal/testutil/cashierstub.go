// Package testutil provides an in-memory cashier server for tests. Like the
// real server it owns the authoritative cart and answers every mutating call
// with a full snapshot.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Product seeds the stub's catalog. Price is the decimal string the real
// server emits.
type Product struct {
	ID                int
	Name              string
	Price             string
	Stock             int
	AvailableHere     bool
	AllowWithoutStock bool
}

// Request is one recorded inbound request.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     string
}

type StubCashier struct {
	Server *httptest.Server

	// When set, the matching endpoint answers 400 {"error": ...} instead.
	AdjustError  string
	ConfirmError string

	mu       sync.Mutex
	products map[int]Product
	order    []int
	qty      map[int]int
	recorded []Request
	sales    int
}

func NewStubCashier(products ...Product) *StubCashier {
	s := &StubCashier{
		products: make(map[int]Product),
		qty:      make(map[int]int),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/cashier/buscar-producto/", s.search)
	r.Post("/cashier/agregar-al-carrito/", s.add)
	r.Post("/cashier/ajustar-cantidad/", s.adjust)
	r.Post("/cashier/", s.confirm)
	r.Post("/cashier/limpiar-carrito/", s.clear)
	r.Post("/cashier/cerrar_caja/", s.closeRegister)

	s.Server = httptest.NewServer(r)
	return s
}

func (s *StubCashier) Close()      { s.Server.Close() }
func (s *StubCashier) URL() string { return s.Server.URL }

// Recorded returns a copy of every request seen so far.
func (s *StubCashier) Recorded() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.recorded))
	copy(out, s.recorded)
	return out
}

// CountByPath counts recorded requests for one endpoint path.
func (s *StubCashier) CountByPath(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.recorded {
		if r.Path == path {
			n++
		}
	}
	return n
}

// CartQuantity reads the stub's authoritative quantity for a product.
func (s *StubCashier) CartQuantity(productID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qty[productID]
}

func (s *StubCashier) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.recorded = append(s.recorded, Request{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     string(body),
		})
		s.mu.Unlock()
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		next.ServeHTTP(w, r)
	})
}

func (s *StubCashier) search(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))

	s.mu.Lock()
	results := []map[string]any{}
	for _, p := range s.products {
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && q != strconv.Itoa(p.ID) {
			continue
		}
		results = append(results, map[string]any{
			"id":                       p.ID,
			"nombre":                   p.Name,
			"precio_venta":             p.Price,
			"stock":                    p.Stock,
			"en_sucursal":              p.AvailableHere,
			"permitir_venta_sin_stock": p.AllowWithoutStock,
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"productos": results})
}

func (s *StubCashier) add(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID int `json:"producto_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[body.ProductID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Producto no encontrado."})
		return
	}
	if !p.AllowWithoutStock && s.qty[p.ID] >= p.Stock {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Stock insuficiente para este producto."})
		return
	}
	if s.qty[p.ID] == 0 {
		s.order = append(s.order, p.ID)
	}
	s.qty[p.ID]++

	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje": "Producto agregado al carrito",
		"carrito": s.snapshotLocked(),
	})
}

func (s *StubCashier) adjust(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID int `json:"producto_id"`
		Delta     int `json:"cantidad"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.AdjustError != "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": s.AdjustError})
		return
	}
	if s.qty[body.ProductID] == 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Producto no encontrado en el carrito."})
		return
	}

	s.qty[body.ProductID] += body.Delta
	if s.qty[body.ProductID] <= 0 {
		delete(s.qty, body.ProductID)
		for i, id := range s.order {
			if id == body.ProductID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje": "Cantidad ajustada correctamente.",
		"carrito": s.snapshotLocked(),
	})
}

func (s *StubCashier) confirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Cart []json.RawMessage `json:"carrito"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ConfirmError != "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": s.ConfirmError})
		return
	}
	if len(body.Cart) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "El carrito está vacío."})
		return
	}

	s.sales++
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"reporte_url": "/cashier/reporte/venta/" + strconv.Itoa(s.sales) + "/",
	})
}

func (s *StubCashier) clear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.qty = make(map[int]int)
	s.order = nil
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *StubCashier) closeRegister(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"detalle_url": "/cashier/caja/1/",
	})
}

func (s *StubCashier) snapshotLocked() []map[string]any {
	lines := []map[string]any{}
	for _, id := range s.order {
		p := s.products[id]
		lines = append(lines, map[string]any{
			"producto_id":              id,
			"nombre":                   p.Name,
			"precio":                   p.Price,
			"cantidad":                 s.qty[id],
			"stock":                    p.Stock,
			"permitir_venta_sin_stock": p.AllowWithoutStock,
		})
	}
	return lines
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
