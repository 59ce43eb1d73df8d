package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/ride-booking/internal/rowstore"
	"github.com/example/ride-booking/internal/validation"
)

func newDirectory(t *testing.T) (*Directory, *rowstore.Memory) {
	t.Helper()
	tbl := rowstore.NewMemory()
	d, err := NewDirectory(context.Background(), tbl, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	d.Cost = bcrypt.MinCost
	return d, tbl
}

func signup() SignupRequest {
	return SignupRequest{
		Name:     "Ana Cruz",
		Contact:  "09171234567",
		Email:    "Ana.Cruz@Example.com",
		Passcode: "s3cret!",
		Address:  "Ermita, Manila",
	}
}

func TestCreateStoresHashNotPlaintext(t *testing.T) {
	d, tbl := newDirectory(t)
	id, err := d.Create(context.Background(), signup())
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected an id")
	}
	rows, _ := tbl.Rows(context.Background())
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	stored := rows[0][4]
	if stored == "s3cret!" || !strings.HasPrefix(stored, "$2") {
		t.Fatalf("passcode column should hold a bcrypt hash, got %q", stored)
	}
}

func TestCreateIDsAreUnique(t *testing.T) {
	d, _ := newDirectory(t)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id, err := d.Create(context.Background(), signup())
		if err != nil {
			t.Fatal(err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestCreateValidates(t *testing.T) {
	d, tbl := newDirectory(t)
	req := signup()
	req.Email = "not-an-email"
	_, err := d.Create(context.Background(), req)
	var ve *validation.Error
	if !errors.As(err, &ve) || ve.Field != "email" {
		t.Fatalf("expected email validation error, got %v", err)
	}
	if rows, _ := tbl.Rows(context.Background()); len(rows) != 0 {
		t.Fatal("invalid signup must not be stored")
	}
}

func TestFindByCredentials(t *testing.T) {
	d, _ := newDirectory(t)
	ctx := context.Background()
	id, err := d.Create(ctx, signup())
	if err != nil {
		t.Fatal(err)
	}

	u, err := d.FindByCredentials(ctx, " "+id+" ", "  ana.cruz@EXAMPLE.com ", "s3cret!")
	if err != nil {
		t.Fatalf("expected login to succeed: %v", err)
	}
	if u.ID != id || u.Name != "Ana Cruz" {
		t.Fatalf("unexpected user %+v", u)
	}

	tests := []struct {
		name, id, email, passcode string
	}{
		{name: "wrong id", id: "0000", email: "ana.cruz@example.com", passcode: "s3cret!"},
		{name: "wrong email", id: id, email: "ana@example.com", passcode: "s3cret!"},
		{name: "wrong passcode", id: id, email: "ana.cruz@example.com", passcode: "S3cret!"},
		{name: "passcode is case sensitive", id: id, email: "ana.cruz@example.com", passcode: "S3CRET!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.FindByCredentials(ctx, tt.id, tt.email, tt.passcode)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
			if err.Error() != "invalid login details" {
				t.Fatalf("error must not reveal the failing field: %v", err)
			}
		})
	}
}
