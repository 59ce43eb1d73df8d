package rowstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Postgres keeps every table in two shared relations (see
// migrations/001_create_rows.sql); cells are stored as text[].
type Postgres struct {
	db    *sql.DB
	table string
}

func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewPostgres(db *sql.DB, table string) *Postgres {
	return &Postgres{db: db, table: table}
}

func (p *Postgres) EnsureHeader(ctx context.Context, header []string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO row_headers(table_name, columns) VALUES($1, $2)
		 ON CONFLICT (table_name) DO UPDATE SET columns = EXCLUDED.columns
		 WHERE row_headers.columns IS DISTINCT FROM EXCLUDED.columns`,
		p.table, pq.Array(header))
	return err
}

func (p *Postgres) Header(ctx context.Context) ([]string, error) {
	var cols pq.StringArray
	err := p.db.QueryRowContext(ctx, `SELECT columns FROM row_headers WHERE table_name=$1`, p.table).Scan(&cols)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []string(cols), nil
}

func (p *Postgres) Append(ctx context.Context, row []string) error {
	header, err := p.Header(ctx)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO row_data(table_name, cells) VALUES($1, $2)`,
		p.table, pq.Array(pad(row, len(header))))
	return err
}

func (p *Postgres) Rows(ctx context.Context) ([][]string, error) {
	rs, err := p.db.QueryContext(ctx, `SELECT cells FROM row_data WHERE table_name=$1 ORDER BY row_no`, p.table)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out [][]string
	for rs.Next() {
		var cells pq.StringArray
		if err := rs.Scan(&cells); err != nil {
			return nil, err
		}
		out = append(out, []string(cells))
	}
	return out, rs.Err()
}

// UpdateCells sets every cell in one UPDATE statement.
func (p *Postgres) UpdateCells(ctx context.Context, row int, values map[string]string) error {
	header, err := p.Header(ctx)
	if err != nil {
		return err
	}
	cols, vals, err := cellIndexes(header, values)
	if err != nil {
		return err
	}
	if row < 0 {
		return ErrRowOutOfRange
	}
	args := []any{p.table, row}
	sets := make([]string, len(cols))
	for j, c := range cols {
		// postgres arrays are 1-based
		args = append(args, c+1, vals[j])
		sets[j] = fmt.Sprintf("cells[$%d] = $%d", len(args)-1, len(args))
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE row_data SET `+strings.Join(sets, ", ")+`
		 WHERE table_name = $1 AND row_no = (
		   SELECT row_no FROM row_data WHERE table_name = $1 ORDER BY row_no OFFSET $2 LIMIT 1)`,
		args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRowOutOfRange
	}
	return nil
}
