package rowstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Redis stores the header as a JSON array at rows:<table>:header and data
// rows as JSON arrays in the list rows:<table>:data.
type Redis struct {
	client *redis.Client
	table  string
}

func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password})
}

func NewRedis(client *redis.Client, table string) *Redis {
	return &Redis{client: client, table: table}
}

func (r *Redis) headerKey() string { return "rows:" + r.table + ":header" }
func (r *Redis) dataKey() string   { return "rows:" + r.table + ":data" }

func (r *Redis) EnsureHeader(ctx context.Context, header []string) error {
	current, err := r.Header(ctx)
	if err != nil {
		return err
	}
	if equalHeader(current, header) {
		return nil
	}
	b, err := json.Marshal(header)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.headerKey(), b, 0).Err()
}

func (r *Redis) Header(ctx context.Context) ([]string, error) {
	raw, err := r.client.Get(ctx, r.headerKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var h []string
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, err
	}
	return h, nil
}

func (r *Redis) Append(ctx context.Context, row []string) error {
	header, err := r.Header(ctx)
	if err != nil {
		return err
	}
	b, err := json.Marshal(pad(row, len(header)))
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, r.dataKey(), b).Err()
}

func (r *Redis) Rows(ctx context.Context) ([][]string, error) {
	raws, err := r.client.LRange(ctx, r.dataKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(raws))
	for _, raw := range raws {
		var row []string
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// UpdateCells rewrites one list element under WATCH so concurrent writers
// to the same table cannot lose updates.
func (r *Redis) UpdateCells(ctx context.Context, row int, values map[string]string) error {
	header, err := r.Header(ctx)
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
	key := r.dataKey()
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.LIndex(ctx, key, int64(row)).Result()
		if errors.Is(err, redis.Nil) {
			return ErrRowOutOfRange
		}
		if err != nil {
			return err
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return err
		}
		cells = pad(cells, cols[len(cols)-1]+1)
		for j, c := range cols {
			cells[c] = vals[j]
		}
		b, err := json.Marshal(cells)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.LSet(ctx, key, int64(row), b)
			return nil
		})
		return err
	}, key)
}
