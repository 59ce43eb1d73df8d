package rowstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"google.golang.org/api/sheets/v4"
)

const (
	BackendMemory   = "memory"
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend               string
	SheetsCredentialsFile string
	PGDSN                 string
	RedisAddr             string
	RedisPassword         string
}

// Opener hands out tables that share one backend connection.
type Opener struct {
	opts  Options
	db    *sql.DB
	redis *redis.Client
	sheet *sheets.Service
}

func NewOpener(ctx context.Context, opts Options) (*Opener, error) {
	o := &Opener{opts: opts}
	var err error
	switch opts.Backend {
	case BackendMemory, "":
	case BackendSheets:
		o.sheet, err = NewSheetsService(ctx, opts.SheetsCredentialsFile)
	case BackendPostgres:
		o.db, err = OpenPostgres(opts.PGDSN)
	case BackendRedis:
		o.redis = NewRedisClient(opts.RedisAddr, opts.RedisPassword)
		err = o.redis.Ping(ctx).Err()
	default:
		err = fmt.Errorf("unknown store backend %q", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", opts.Backend, err)
	}
	return o, nil
}

// Table opens name. For Sheets, spreadsheetID addresses the document and
// name the tab.
func (o *Opener) Table(name, spreadsheetID string) Table {
	switch {
	case o.sheet != nil:
		return NewSheets(o.sheet, spreadsheetID, "Sheet1")
	case o.db != nil:
		return NewPostgres(o.db, name)
	case o.redis != nil:
		return NewRedis(o.redis, name)
	default:
		return NewMemory()
	}
}

// DB exposes the Postgres handle for migrations; nil for other backends.
func (o *Opener) DB() *sql.DB { return o.db }

func (o *Opener) Close() error {
	var errs []error
	if o.db != nil {
		errs = append(errs, o.db.Close())
	}
	if o.redis != nil {
		errs = append(errs, o.redis.Close())
	}
	return errors.Join(errs...)
}
