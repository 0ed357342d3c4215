package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReportRow is one unpaid customer line of the reminder email
type ReportRow struct {
	CustomerName string  `json:"customerName"`
	Quantity     float64 `json:"quantity"`
	Rate         float64 `json:"rate"`
	Amount       float64 `json:"amount"`
}

// UnpaidSubject is the subject line of the unpaid-customers email
func UnpaidSubject(shift string, day time.Time) string {
	return fmt.Sprintf("Unpaid Customers (%s) - %s", shift, day.Format("2006-01-02"))
}

// BuildUnpaidReport renders the unpaid-customers email body
func BuildUnpaidReport(shift string, rows []ReportRow) string {
	if len(rows) == 0 {
		return "<h3>All customers are paid ✅</h3>"
	}

	var sb strings.Builder
	sb.WriteString("<h3>Unpaid Customers — ")
	sb.WriteString(html.EscapeString(shift))
	sb.WriteString("</h3>")
	sb.WriteString("<table border='1' cellpadding='6' style='border-collapse:collapse;font-family:Arial,sans-serif'>")
	sb.WriteString("<tr><th>Name</th><th>Litres</th><th>Rate</th><th>Total</th></tr>")

	total := decimal.Zero
	for _, row := range rows {
		amount := decimal.NewFromFloat(row.Amount)
		total = total.Add(amount)

		sb.WriteString("<tr>")
		sb.WriteString("<td>" + html.EscapeString(row.CustomerName) + "</td>")
		sb.WriteString("<td>" + money(row.Quantity) + "</td>")
		sb.WriteString("<td>" + money(row.Rate) + "</td>")
		sb.WriteString("<td><b>" + amount.StringFixed(2) + "</b></td>")
		sb.WriteString("</tr>")
	}

	sb.WriteString("<tr><td colspan='3'><b>Total</b></td><td><b>" + total.StringFixed(2) + "</b></td></tr>")
	sb.WriteString("</table>")
	return sb.String()
}

// ResetCodeSubject is the subject line of the password reset email
const ResetCodeSubject = "Your password reset code"

// BuildResetCodeEmail renders the password reset email body
func BuildResetCodeEmail(code string, ttl time.Duration) string {
	return fmt.Sprintf(
		"<p>Your one-time code is <b>%s</b>.</p><p>It expires in %d minutes.</p>",
		html.EscapeString(code), int(ttl.Minutes()),
	)
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
