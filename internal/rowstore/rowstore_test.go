package rowstore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestColumnName(t *testing.T) {
	tests := map[int]string{0: "A", 12: "M", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA", 701: "ZZ", 702: "AAA"}
	for in, want := range tests {
		if got := ColumnName(in); got != want {
			t.Errorf("ColumnName(%d) = %s, expected %s", in, got, want)
		}
	}
}

func TestRecords(t *testing.T) {
	header := []string{"ID", "Name", "Email"}
	got := Records(header, [][]string{{"1", "Ana", "ana@example.com"}, {"2", "Ben"}})
	want := []Record{
		{"ID": "1", "Name": "Ana", "Email": "ana@example.com"},
		{"ID": "2", "Name": "Ben", "Email": ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryTable(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.EnsureHeader(ctx, []string{"ID", "Status"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Append(ctx, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Append(ctx, []string{"b", "Confirmed"}); err != nil {
		t.Fatal(err)
	}
	if err := m.UpdateCells(ctx, 1, map[string]string{"Status": "Cancelled"}); err != nil {
		t.Fatal(err)
	}
	rows, err := m.Rows(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"a", ""}, {"b", "Cancelled"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	if err := m.UpdateCells(ctx, 5, map[string]string{"Status": "x"}); !errors.Is(err, ErrRowOutOfRange) {
		t.Fatalf("expected ErrRowOutOfRange, got %v", err)
	}
	if err := m.UpdateCells(ctx, 0, map[string]string{"Status": "x", "Nope": "x"}); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
	if err := m.UpdateCells(ctx, 0, nil); !errors.Is(err, ErrNoCells) {
		t.Fatalf("expected ErrNoCells, got %v", err)
	}
	if again, _ := m.Rows(ctx); again[0][1] != "" {
		t.Fatalf("a rejected update must not write any cell, got %q", again[0][1])
	}
	if err := m.UpdateCells(ctx, 0, map[string]string{"Status": "Completed", "ID": "a2"}); err != nil {
		t.Fatal(err)
	}
	if again, _ := m.Rows(ctx); again[0][0] != "a2" || again[0][1] != "Completed" {
		t.Fatalf("unexpected row %v", again[0])
	}

	rows[0][0] = "mutated"
	again, _ := m.Rows(ctx)
	if again[0][0] != "a2" {
		t.Fatalf("Rows must return a copy")
	}
}

func TestMemoryEnsureHeaderReplacesMismatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.EnsureHeader(ctx, []string{"old"})
	_ = m.EnsureHeader(ctx, []string{"ID", "Name"})
	h, _ := m.Header(ctx)
	if diff := cmp.Diff([]string{"ID", "Name"}, h); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestNewOpenerRejectsUnknownBackend(t *testing.T) {
	if _, err := NewOpener(context.Background(), Options{Backend: "mongo"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestOpenerMemory(t *testing.T) {
	o, err := NewOpener(context.Background(), Options{Backend: BackendMemory})
	if err != nil {
		t.Fatal(err)
	}
	defer o.Close()
	if _, ok := o.Table("bookings", "").(*Memory); !ok {
		t.Fatal("expected memory table")
	}
}
