// Package session tracks the sale being built at the register: sale type,
// payment method, tendered amount, and the checkout flow from confirmation
// through submission and post-sale reset.
package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/pos-terminal-go/internal/cart"
	"github.com/andreasstove999/pos-terminal-go/internal/gateway"
	"github.com/andreasstove999/pos-terminal-go/internal/money"
)

// Sale types and payment methods use the server's wire values.
const (
	SaleTypeBoleta  = "boleta"
	SaleTypeFactura = "factura"

	PaymentCash     = "efectivo"
	PaymentDebit    = "debito"
	PaymentCredit   = "credito"
	PaymentTransfer = "transferencia"
)

type State int

const (
	Building State = iota
	AwaitingConfirmation
	Submitting
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Building:
		return "building"
	case AwaitingConfirmation:
		return "awaiting-confirmation"
	case Submitting:
		return "submitting"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	ErrNotBuilding        = errors.New("sale is already being confirmed")
	ErrNotAwaiting        = errors.New("sale is not awaiting confirmation")
	ErrNothingToAck       = errors.New("no finished submission to acknowledge")
	ErrTenderedLocked     = errors.New("tendered amount is fixed for non-cash payments")
	ErrUnknownSaleType    = errors.New("unknown sale type")
	ErrUnknownPayment     = errors.New("unknown payment method")
	ErrEmptyCart          = errors.New("the cart is empty")
	ErrInsufficientCash   = errors.New("tendered amount does not cover the total")
	ErrMissingTransaction = errors.New("transaction number is required")
	ErrMissingBank        = errors.New("bank name is required")
)

// Gateway is the slice of the server client the session needs.
type Gateway interface {
	ConfirmSale(ctx context.Context, req gateway.ConfirmRequest) (string, error)
	ClearCart(ctx context.Context) error
}

type Session struct {
	gw     Gateway
	mirror *cart.Mirror
	logger *log.Logger

	mu             sync.Mutex
	state          State
	saleType       string
	payment        string
	tenderedRaw    string
	tenderedLocked bool
	txNumber       string
	bank           string
	reportURL      string
	lastErr        error
}

func New(gw Gateway, mirror *cart.Mirror, logger *log.Logger) *Session {
	s := &Session{gw: gw, mirror: mirror, logger: logger}
	s.resetLocked()
	return s
}

// resetLocked restores the defaults for the next sale. Caller holds the lock
// (or is the constructor).
func (s *Session) resetLocked() {
	s.state = Building
	s.saleType = SaleTypeBoleta
	s.payment = PaymentCash
	s.tenderedRaw = ""
	s.tenderedLocked = false
	s.txNumber = ""
	s.bank = ""
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SaleType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saleType
}

func (s *Session) PaymentMethod() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payment
}

func (s *Session) TenderedRaw() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenderedRaw
}

func (s *Session) TenderedLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenderedLocked
}

func (s *Session) ReportURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reportURL
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) SelectSaleType(t string) error {
	if t != SaleTypeBoleta && t != SaleTypeFactura {
		return ErrUnknownSaleType
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Building {
		return ErrNotBuilding
	}
	s.saleType = t
	return nil
}

// SelectPaymentMethod switches the payment method. A non-cash method fixes
// the tendered amount to the current total and locks the field; cash unlocks
// it. Leaving non-cash clears the transaction number, leaving transfer
// clears the bank.
func (s *Session) SelectPaymentMethod(m string) error {
	switch m {
	case PaymentCash, PaymentDebit, PaymentCredit, PaymentTransfer:
	default:
		return ErrUnknownPayment
	}

	total := s.mirror.Total()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Building {
		return ErrNotBuilding
	}

	s.payment = m
	if m == PaymentCash {
		s.tenderedLocked = false
		s.txNumber = ""
		s.bank = ""
		return nil
	}

	s.tenderedRaw = total.Round(0).String()
	s.tenderedLocked = true
	if m != PaymentTransfer {
		s.bank = ""
	}
	return nil
}

func (s *Session) SetTendered(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Building {
		return ErrNotBuilding
	}
	if s.tenderedLocked {
		return ErrTenderedLocked
	}
	s.tenderedRaw = strings.TrimSpace(raw)
	return nil
}

func (s *Session) SetTransactionNumber(n string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Building {
		return ErrNotBuilding
	}
	s.txNumber = strings.TrimSpace(n)
	return nil
}

func (s *Session) SetBankName(b string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Building {
		return ErrNotBuilding
	}
	s.bank = strings.TrimSpace(b)
	return nil
}

// SyncTendered re-fixes the tendered amount to the current total while a
// non-cash method keeps it locked. Called after every cart change so the
// locked field tracks the total.
func (s *Session) SyncTendered() {
	total := s.mirror.Total()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Building && s.tenderedLocked {
		s.tenderedRaw = total.Round(0).String()
	}
}

// Change derives the owed/exact/change-due amount for the display. Non-cash
// payments always show exact.
func (s *Session) Change() money.Change {
	total := s.mirror.Total()

	s.mu.Lock()
	payment, raw := s.payment, s.tenderedRaw
	s.mu.Unlock()

	if payment != PaymentCash {
		return money.Change{Amount: decimal.Zero, Sign: money.Zero}
	}
	return money.ComputeChange(raw, total)
}

// RequestConfirmation moves Building to AwaitingConfirmation. Each refusal
// is a specific error and leaves the state untouched.
func (s *Session) RequestConfirmation() error {
	total := s.mirror.Total()
	empty := s.mirror.IsEmpty()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Building {
		return ErrNotBuilding
	}

	switch {
	case empty:
		return ErrEmptyCart
	case s.payment == PaymentCash && money.ComputeChange(s.tenderedRaw, total).Sign == money.Negative:
		return ErrInsufficientCash
	case s.payment != PaymentCash && s.txNumber == "":
		return ErrMissingTransaction
	case s.payment == PaymentTransfer && s.bank == "":
		return ErrMissingBank
	}

	s.state = AwaitingConfirmation
	return nil
}

// Cancel backs out of the confirmation step.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != AwaitingConfirmation {
		return ErrNotAwaiting
	}
	s.state = Building
	return nil
}

// Submit sends the sale to the server. On success the mirror is cleared, the
// server-side cart is told to clear as well (its failure only gets logged;
// the sale is already persisted), and the session resets for the next sale.
// On failure the operator may acknowledge and retry.
func (s *Session) Submit(ctx context.Context) (string, error) {
	lines := s.mirror.Lines()

	s.mu.Lock()
	if s.state != AwaitingConfirmation {
		s.mu.Unlock()
		return "", ErrNotAwaiting
	}
	s.state = Submitting
	req := gateway.ConfirmRequest{
		Lines:          lines,
		SaleType:       s.saleType,
		PaymentMethod:  s.payment,
		AmountTendered: parseAmount(s.tenderedRaw),
	}
	if s.payment != PaymentCash {
		req.TransactionNumber = s.txNumber
	}
	if s.payment == PaymentTransfer {
		req.BankName = s.bank
	}
	s.mu.Unlock()

	reportURL, err := s.gw.ConfirmSale(ctx, req)
	if err != nil {
		s.mu.Lock()
		s.state = Failed
		s.lastErr = err
		s.mu.Unlock()
		return "", err
	}

	s.mirror.Replace(nil)
	if clearErr := s.gw.ClearCart(ctx); clearErr != nil {
		s.logger.Printf("clear server cart after sale: %v", clearErr)
	}

	s.mu.Lock()
	s.resetLocked()
	s.state = Completed
	s.reportURL = reportURL
	s.lastErr = nil
	s.mu.Unlock()
	return reportURL, nil
}

// Acknowledge leaves a terminal state: a completed sale starts the next one,
// a failed submission returns to the confirmation step so the operator can
// retry.
func (s *Session) Acknowledge() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Completed:
		s.state = Building
		return nil
	case Failed:
		s.state = AwaitingConfirmation
		return nil
	default:
		return ErrNothingToAck
	}
}

func parseAmount(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
