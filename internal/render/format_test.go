package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pvzzle/posledger/internal/storage"
)

func ts(h, m int) int64 {
	return time.Date(2026, 2, 14, h, m, 0, 0, time.UTC).UnixMilli()
}

func TestFormatList(t *testing.T) {
	items := []storage.PaymentRequest{
		{ID: 1, Amount: 1_500_000, Timestamp: ts(10, 0), TxHash: "abc123"},
		{ID: 2, Amount: 2_000_000, Timestamp: ts(10, 5)},
	}

	txt := FormatList(items, time.UTC)
	lines := strings.Split(strings.TrimRight(txt, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d: %q", len(lines), txt)
	}
	for _, col := range []string{"ID", "Amount (ADA)", "Timestamp", "Transaction Hash"} {
		if !strings.Contains(lines[0], col) {
			t.Fatalf("missing column %q in %q", col, lines[0])
		}
	}
	if !strings.Contains(lines[1], "1.50") || !strings.Contains(lines[1], "abc123") {
		t.Fatalf("unexpected row 1: %q", lines[1])
	}
	if !strings.Contains(lines[1], "2026-02-14 10:00:00") {
		t.Fatalf("expected timestamp in row 1: %q", lines[1])
	}
	if !strings.Contains(lines[2], "2.00") || !strings.HasSuffix(lines[2], "-") {
		t.Fatalf("unexpected row 2: %q", lines[2])
	}
}

func TestFormatList_RoundsLikeRequests(t *testing.T) {
	items := []storage.PaymentRequest{
		{ID: 1, Amount: 1_005_000, Timestamp: ts(10, 0)},
		{ID: 2, Amount: 2_675_000, Timestamp: ts(10, 1)},
	}

	table := strings.Split(strings.TrimRight(FormatList(items, time.UTC), "\n"), "\n")
	chat := FormatRequests(items, 10)

	for i, want := range []string{"1.01", "2.68"} {
		row := strings.Fields(table[i+1])
		if len(row) < 2 || row[1] != want {
			t.Fatalf("table row %d: expected amount %s, got %q", i+1, want, table[i+1])
		}
		if !strings.Contains(chat, " "+want+" ADA") {
			t.Fatalf("chat list: expected %s ADA in %q", want, chat)
		}
	}
}

func TestFormatList_Empty(t *testing.T) {
	if got := FormatList(nil, time.UTC); got != "No transactions yet\n" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatCreated(t *testing.T) {
	rec := storage.PaymentRequest{ID: 3, Amount: 1_234_567}

	got := FormatCreated(rec, "")
	if !strings.Contains(got, "1.234567 ADA") {
		t.Fatalf("expected 6 decimals: %q", got)
	}
	if strings.Contains(got, "Pay with") {
		t.Fatalf("unexpected uri: %q", got)
	}

	got = FormatCreated(rec, "web+cardano:addr?amount=1.234567")
	if !strings.Contains(got, "Pay with: web+cardano:addr?amount=1.234567") {
		t.Fatalf("expected uri: %q", got)
	}
}

func TestFormatRequests(t *testing.T) {
	items := []storage.PaymentRequest{
		{ID: 1, Amount: 1_000_000, TxHash: "0x" + strings.Repeat("1", 64)},
		{ID: 2, Amount: 2_000_000},
		{ID: 3, Amount: 3_000_000},
	}

	txt := FormatRequests(items, 2)
	if strings.Contains(txt, "#1 ") {
		t.Fatalf("limit not applied: %s", txt)
	}
	if strings.Index(txt, "#3") > strings.Index(txt, "#2") {
		t.Fatalf("expected newest first: %s", txt)
	}

	txt = FormatRequests(items, 10)
	if !strings.Contains(txt, "…") {
		t.Fatalf("expected shortened hash: %s", txt)
	}
	if FormatRequests(nil, 10) != EmptyText {
		t.Fatal("expected empty text")
	}
}

func TestShortenHash(t *testing.T) {
	if got := ShortenHash("short"); got != "short" {
		t.Fatalf("got %q", got)
	}
	h := "0x" + strings.Repeat("a", 60) + "beef"
	if got := ShortenHash(h); got != "0xaaaaaaaa…beef" {
		t.Fatalf("got %q", got)
	}
}

func TestTerminalView(t *testing.T) {
	var buf bytes.Buffer
	v := NewTerminalView(&buf, time.UTC)

	v.Render([]storage.PaymentRequest{{ID: 1, Amount: 1_000_000, Timestamp: ts(9, 0)}})
	if !strings.Contains(buf.String(), "Transactions (1)") || !strings.Contains(buf.String(), "1.00") {
		t.Fatalf("unexpected render: %q", buf.String())
	}

	buf.Reset()
	v.RenderError(errors.New("boom"))
	if !strings.Contains(buf.String(), ErrorText) || strings.Contains(buf.String(), "boom") {
		t.Fatalf("unexpected error render: %q", buf.String())
	}
}
