package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportURLDerivation(t *testing.T) {
	tests := map[string]struct {
		in        string
		wantEmbed string
		wantPrint string
	}{
		"trailing slash": {
			in:        "/cashier/reporte/venta/42/",
			wantEmbed: "/cashier/reporte/embed/42/",
			wantPrint: "/cashier/print/venta/42/",
		},
		"no trailing slash": {
			in:        "/cashier/reporte/venta/7",
			wantEmbed: "/cashier/reporte/embed/7/",
			wantPrint: "/cashier/print/venta/7/",
		},
		"no id falls back to input": {
			in:        "/cashier/reporte/",
			wantEmbed: "/cashier/reporte/",
			wantPrint: "/cashier/reporte/",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.wantEmbed, EmbedReportURL(tc.in))
			assert.Equal(t, tc.wantPrint, PrintReportURL(tc.in))
		})
	}
}
