package session

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/pos-terminal-go/internal/cart"
	"github.com/andreasstove999/pos-terminal-go/internal/gateway"
	"github.com/andreasstove999/pos-terminal-go/internal/money"
)

type fakeGateway struct {
	confirmReq   gateway.ConfirmRequest
	confirmCalls int
	confirmErr   error
	reportURL    string

	clearCalls int
	clearErr   error
}

func (f *fakeGateway) ConfirmSale(ctx context.Context, req gateway.ConfirmRequest) (string, error) {
	f.confirmCalls++
	f.confirmReq = req
	if f.confirmErr != nil {
		return "", f.confirmErr
	}
	return f.reportURL, nil
}

func (f *fakeGateway) ClearCart(ctx context.Context) error {
	f.clearCalls++
	return f.clearErr
}

func mirrorWithTotal(t *testing.T, price string, qty int) *cart.Mirror {
	t.Helper()
	m := cart.NewMirror()
	m.Replace([]cart.Line{{
		ProductID:         1,
		Name:              "p",
		UnitPrice:         decimal.RequireFromString(price),
		Quantity:          qty,
		AllowWithoutStock: true,
	}})
	return m
}

func newTestSession(gw Gateway, mirror *cart.Mirror) *Session {
	return New(gw, mirror, log.New(io.Discard, "", 0))
}

func TestDefaults(t *testing.T) {
	s := newTestSession(&fakeGateway{}, cart.NewMirror())

	assert.Equal(t, Building, s.State())
	assert.Equal(t, SaleTypeBoleta, s.SaleType())
	assert.Equal(t, PaymentCash, s.PaymentMethod())
	assert.Empty(t, s.TenderedRaw())
	assert.False(t, s.TenderedLocked())
}

func TestNonCashLocksTenderedToTotal(t *testing.T) {
	mirror := mirrorWithTotal(t, "2500", 1)
	s := newTestSession(&fakeGateway{}, mirror)

	require.NoError(t, s.SelectPaymentMethod(PaymentDebit))
	assert.Equal(t, "2500", s.TenderedRaw())
	assert.True(t, s.TenderedLocked())
	assert.ErrorIs(t, s.SetTendered("9999"), ErrTenderedLocked)

	// Non-cash always shows exact change.
	assert.Equal(t, money.Zero, s.Change().Sign)

	// Cash unlocks; left blank, the full total is owed again.
	require.NoError(t, s.SelectPaymentMethod(PaymentCash))
	assert.False(t, s.TenderedLocked())
	require.NoError(t, s.SetTendered(""))
	change := s.Change()
	assert.Equal(t, money.Negative, change.Sign)
	assert.True(t, change.Amount.Equal(decimal.RequireFromString("2500")))
}

func TestLeavingNonCashClearsFields(t *testing.T) {
	mirror := mirrorWithTotal(t, "1000", 1)
	s := newTestSession(&fakeGateway{}, mirror)

	require.NoError(t, s.SelectPaymentMethod(PaymentTransfer))
	require.NoError(t, s.SetTransactionNumber("TX-1"))
	require.NoError(t, s.SetBankName("Banco Estado"))

	// Transfer -> debit keeps the transaction number, drops the bank.
	require.NoError(t, s.SelectPaymentMethod(PaymentDebit))
	require.NoError(t, s.RequestConfirmation())
	require.NoError(t, s.Cancel())

	// Back to cash drops both.
	require.NoError(t, s.SelectPaymentMethod(PaymentCash))
	require.NoError(t, s.SelectPaymentMethod(PaymentTransfer))
	assert.ErrorIs(t, s.RequestConfirmation(), ErrMissingTransaction)
}

func TestSyncTenderedTracksTotalWhileLocked(t *testing.T) {
	mirror := mirrorWithTotal(t, "1000", 1)
	s := newTestSession(&fakeGateway{}, mirror)
	require.NoError(t, s.SelectPaymentMethod(PaymentDebit))
	require.Equal(t, "1000", s.TenderedRaw())

	mirror.Replace([]cart.Line{{
		ProductID: 1, Name: "p",
		UnitPrice: decimal.RequireFromString("1000"),
		Quantity:  3, AllowWithoutStock: true,
	}})
	s.SyncTendered()
	assert.Equal(t, "3000", s.TenderedRaw())

	// Unlocked cash input is never overwritten.
	require.NoError(t, s.SelectPaymentMethod(PaymentCash))
	require.NoError(t, s.SetTendered("5000"))
	s.SyncTendered()
	assert.Equal(t, "5000", s.TenderedRaw())
}

func TestRequestConfirmationRefusals(t *testing.T) {
	tests := map[string]struct {
		setup   func(t *testing.T, s *Session)
		mirror  *cart.Mirror
		wantErr error
	}{
		"empty cart refuses regardless of fields": {
			setup: func(t *testing.T, s *Session) {
				require.NoError(t, s.SetTendered("99999"))
			},
			mirror:  cart.NewMirror(),
			wantErr: ErrEmptyCart,
		},
		"cash below total": {
			setup: func(t *testing.T, s *Session) {
				require.NoError(t, s.SetTendered("900"))
			},
			wantErr: ErrInsufficientCash,
		},
		"cash with blank tendered": {
			setup:   func(t *testing.T, s *Session) {},
			wantErr: ErrInsufficientCash,
		},
		"non-cash without transaction number": {
			setup: func(t *testing.T, s *Session) {
				require.NoError(t, s.SelectPaymentMethod(PaymentCredit))
			},
			wantErr: ErrMissingTransaction,
		},
		"transfer without bank": {
			setup: func(t *testing.T, s *Session) {
				require.NoError(t, s.SelectPaymentMethod(PaymentTransfer))
				require.NoError(t, s.SetTransactionNumber("TX-9"))
			},
			wantErr: ErrMissingBank,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			mirror := tc.mirror
			if mirror == nil {
				mirror = mirrorWithTotal(t, "1000", 1)
			}
			s := newTestSession(&fakeGateway{}, mirror)
			tc.setup(t, s)

			err := s.RequestConfirmation()
			require.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, Building, s.State())
		})
	}
}

func TestRequestConfirmationAndCancel(t *testing.T) {
	mirror := mirrorWithTotal(t, "1000", 2)
	s := newTestSession(&fakeGateway{}, mirror)
	require.NoError(t, s.SetTendered("2000"))

	require.NoError(t, s.RequestConfirmation())
	assert.Equal(t, AwaitingConfirmation, s.State())

	// Selections are only valid while building.
	assert.ErrorIs(t, s.SelectSaleType(SaleTypeFactura), ErrNotBuilding)
	assert.ErrorIs(t, s.SelectPaymentMethod(PaymentDebit), ErrNotBuilding)

	require.NoError(t, s.Cancel())
	assert.Equal(t, Building, s.State())
}

func TestSubmitSuccessResetsSession(t *testing.T) {
	mirror := mirrorWithTotal(t, "1500", 2)
	gw := &fakeGateway{reportURL: "/cashier/reporte/venta/11/"}
	s := newTestSession(gw, mirror)

	require.NoError(t, s.SelectSaleType(SaleTypeFactura))
	require.NoError(t, s.SetTendered("3000"))
	require.NoError(t, s.RequestConfirmation())

	url, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/cashier/reporte/venta/11/", url)

	assert.Equal(t, 1, gw.confirmCalls)
	assert.Equal(t, SaleTypeFactura, gw.confirmReq.SaleType)
	assert.Equal(t, PaymentCash, gw.confirmReq.PaymentMethod)
	assert.True(t, gw.confirmReq.AmountTendered.Equal(decimal.RequireFromString("3000")))
	assert.Empty(t, gw.confirmReq.TransactionNumber)
	require.Len(t, gw.confirmReq.Lines, 1)
	assert.Equal(t, 2, gw.confirmReq.Lines[0].Quantity)

	// Completed: mirror cleared, server cart cleared, fields back to defaults.
	assert.Equal(t, Completed, s.State())
	assert.True(t, mirror.IsEmpty())
	assert.Equal(t, 1, gw.clearCalls)
	assert.Equal(t, SaleTypeBoleta, s.SaleType())
	assert.Equal(t, PaymentCash, s.PaymentMethod())
	assert.Empty(t, s.TenderedRaw())

	require.NoError(t, s.Acknowledge())
	assert.Equal(t, Building, s.State())
}

func TestSubmitNonCashSendsTransactionFields(t *testing.T) {
	mirror := mirrorWithTotal(t, "1000", 1)
	gw := &fakeGateway{reportURL: "/r/1/"}
	s := newTestSession(gw, mirror)

	require.NoError(t, s.SelectPaymentMethod(PaymentTransfer))
	require.NoError(t, s.SetTransactionNumber("TX-77"))
	require.NoError(t, s.SetBankName("Banco Estado"))
	require.NoError(t, s.RequestConfirmation())

	_, err := s.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PaymentTransfer, gw.confirmReq.PaymentMethod)
	assert.Equal(t, "TX-77", gw.confirmReq.TransactionNumber)
	assert.Equal(t, "Banco Estado", gw.confirmReq.BankName)
	assert.True(t, gw.confirmReq.AmountTendered.Equal(decimal.RequireFromString("1000")))
}

func TestSubmitFailureAllowsRetry(t *testing.T) {
	mirror := mirrorWithTotal(t, "1000", 1)
	gw := &fakeGateway{confirmErr: errors.New("Stock insuficiente")}
	s := newTestSession(gw, mirror)
	require.NoError(t, s.SetTendered("1000"))
	require.NoError(t, s.RequestConfirmation())

	_, err := s.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, Failed, s.State())
	assert.Equal(t, err, s.Err())

	// Nothing was assumed changed server-side.
	assert.False(t, mirror.IsEmpty())
	assert.Equal(t, 0, gw.clearCalls)

	// Acknowledge returns to the confirmation step; the retry succeeds.
	require.NoError(t, s.Acknowledge())
	assert.Equal(t, AwaitingConfirmation, s.State())

	gw.confirmErr = nil
	gw.reportURL = "/r/2/"
	url, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/r/2/", url)
	assert.Equal(t, Completed, s.State())
}

func TestSubmitRequiresConfirmation(t *testing.T) {
	s := newTestSession(&fakeGateway{}, mirrorWithTotal(t, "1000", 1))

	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotAwaiting)
}

func TestUnknownSelections(t *testing.T) {
	s := newTestSession(&fakeGateway{}, cart.NewMirror())

	assert.ErrorIs(t, s.SelectSaleType("recibo"), ErrUnknownSaleType)
	assert.ErrorIs(t, s.SelectPaymentMethod("cheque"), ErrUnknownPayment)
}
