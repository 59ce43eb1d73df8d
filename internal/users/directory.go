package users

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/observability"
	"github.com/example/ride-booking/internal/rowstore"
	"github.com/example/ride-booking/internal/validation"
)

const (
	ColID       = "ID"
	ColName     = "Name"
	ColContact  = "Contact"
	ColEmail    = "Email"
	ColPasscode = "Passcode"
	ColAddress  = "Address"
)

var Columns = []string{ColID, ColName, ColContact, ColEmail, ColPasscode, ColAddress}

// ErrInvalidCredentials never says which field was wrong.
var ErrInvalidCredentials = errors.New("invalid login details")

type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Contact  string `json:"contact" validate:"required,numeric,min=7,max=15"`
	Email    string `json:"email" validate:"required,email"`
	Passcode string `json:"passcode" validate:"required,min=4,max=72"`
	Address  string `json:"address" validate:"required"`
}

// Directory is the User Directory over a row store table. The Passcode
// column holds bcrypt hashes.
type Directory struct {
	table  rowstore.Table
	logger *slog.Logger
	newID  func() string
	// Cost is the bcrypt work factor for new accounts.
	Cost int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewDirectory(ctx context.Context, table rowstore.Table, logger *slog.Logger) (*Directory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := table.EnsureHeader(ctx, Columns); err != nil {
		return nil, fmt.Errorf("init user table: %w", err)
	}
	return &Directory{
		table:  table,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
		Cost:   bcrypt.DefaultCost,
	}, nil
}

// Create validates req, hashes the passcode and appends a user row.
func (d *Directory) Create(ctx context.Context, req SignupRequest) (string, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Contact = strings.TrimSpace(req.Contact)
	req.Address = strings.TrimSpace(req.Address)
	if err := validation.Struct(req); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Passcode), d.Cost)
	if err != nil {
		return "", fmt.Errorf("hash passcode: %w", err)
	}
	id := d.newID()
	row := []string{id, req.Name, req.Contact, req.Email, string(hash), req.Address}
	if err := d.table.Append(ctx, row); err != nil {
		observability.PersistenceErrors.WithLabelValues("user_create").Inc()
		d.logger.Error("user signup failed", "error", err)
		return "", fmt.Errorf("store user: %w", err)
	}
	d.logger.Info("user registered", "user_id", id)
	return id, nil
}

// FindByCredentials requires an exact id, a case-insensitive trimmed email
// and the passcode. Any mismatch yields ErrInvalidCredentials.
func (d *Directory) FindByCredentials(ctx context.Context, id, email, passcode string) (models.User, error) {
	id = strings.TrimSpace(id)
	want := foldEmail(email)

	header, err := d.table.Header(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("load users: %w", err)
	}
	rows, err := d.table.Rows(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("load users: %w", err)
	}
	for _, r := range rowstore.Records(header, rows) {
		if subtle.ConstantTimeCompare([]byte(r[ColID]), []byte(id)) != 1 {
			continue
		}
		if foldEmail(r[ColEmail]) != want {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(r[ColPasscode]), []byte(passcode)) != nil {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{
			ID:           r[ColID],
			Name:         r[ColName],
			Contact:      r[ColContact],
			Email:        r[ColEmail],
			PasscodeHash: r[ColPasscode],
			Address:      r[ColAddress],
		}, nil
	}
	d.burnCompare(passcode)
	return models.User{}, ErrInvalidCredentials
}

// burnCompare spends one bcrypt comparison so unknown accounts take as long
// to reject as wrong passcodes.
func (d *Directory) burnCompare(passcode string) {
	d.dummyOnce.Do(func() {
		d.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("unused-passcode"), d.Cost)
	})
	_ = bcrypt.CompareHashAndPassword(d.dummyHash, []byte(passcode))
}

// Casers are stateful, so each call gets its own.
func foldEmail(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
