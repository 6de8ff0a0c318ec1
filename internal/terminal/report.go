package terminal

import "regexp"

// saleIDPattern extracts the sale id from a report URL ending in /<id>/.
var saleIDPattern = regexp.MustCompile(`/(\d+)/?$`)

// EmbedReportURL derives the embeddable report view from a sale report URL.
// When no sale id can be parsed, the original URL is returned unchanged.
func EmbedReportURL(reportURL string) string {
	m := saleIDPattern.FindStringSubmatch(reportURL)
	if m == nil {
		return reportURL
	}
	return "/cashier/reporte/embed/" + m[1] + "/"
}

// PrintReportURL derives the thermal-printer view from a sale report URL.
func PrintReportURL(reportURL string) string {
	m := saleIDPattern.FindStringSubmatch(reportURL)
	if m == nil {
		return reportURL
	}
	return "/cashier/print/venta/" + m[1] + "/"
}
