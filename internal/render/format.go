package render

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pvzzle/posledger/internal/amount"
	"github.com/pvzzle/posledger/internal/storage"
)

const (
	EmptyText = "No transactions yet"
	ErrorText = "Error loading transactions"

	timeLayout = "2006-01-02 15:04:05"
)

// FormatList renders records as a table, in the order given.
func FormatList(items []storage.PaymentRequest, loc *time.Location) string {
	if len(items) == 0 {
		return EmptyText + "\n"
	}
	if loc == nil {
		loc = time.Local
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAmount (ADA)\tTimestamp\tTransaction Hash")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			it.ID,
			amount.FormatAda(it.Amount, 2),
			it.CreatedAt().In(loc).Format(timeLayout),
			hashOrDash(it.TxHash),
		)
	}
	_ = tw.Flush()
	return sb.String()
}

// FormatCreated is the message shown after a request is created.
func FormatCreated(rec storage.PaymentRequest, paymentURI string) string {
	msg := fmt.Sprintf("Transaction created successfully! Amount: %s ADA (id %d)",
		amount.FormatAda(rec.Amount, 6), rec.ID)
	if paymentURI != "" {
		msg += "\nPay with: " + paymentURI
	}
	return msg
}

// FormatRequests is the compact list used in chat messages, newest first.
func FormatRequests(items []storage.PaymentRequest, limit int) string {
	if len(items) == 0 {
		return EmptyText
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🧾 Requests (last %d)\n\n", limit))

	for i, n := len(items)-1, 0; i >= 0 && n < limit; i, n = i-1, n+1 {
		it := items[i]
		status := "⏳"
		if it.Confirmed() {
			status = "✅ " + ShortenHash(it.TxHash)
		}
		sb.WriteString(fmt.Sprintf("• #%d  %s ADA  %s\n", it.ID, amount.FormatAda(it.Amount, 2), status))
	}
	return sb.String()
}

// FormatConfirmed announces a confirmation.
func FormatConfirmed(rec storage.PaymentRequest) string {
	return fmt.Sprintf("✅ Payment request #%d confirmed\n%s ADA\ntx: %s",
		rec.ID, amount.FormatAda(rec.Amount, 6), rec.TxHash)
}

func ShortenHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return h[:10] + "…" + h[len(h)-4:]
}

func hashOrDash(h string) string {
	if h == "" {
		return "-"
	}
	return h
}
