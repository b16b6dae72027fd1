package patient

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hcevision/cardio/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// pgStore keeps each record as a JSONB document next to its denormalized
// name for lookups.
type pgStore struct{ pool *pgxpool.Pool }

func NewPGStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (r *pgStore) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *pgStore) scanOne(row pgx.Row) (*Record, error) {
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeRecord(data)
}

func (r *pgStore) Get(ctx context.Context, id string) (*Record, error) {
	defer observe("postgres", "get", time.Now())
	return r.scanOne(r.conn(ctx).QueryRow(ctx, `SELECT data FROM patients WHERE id = $1`, id))
}

func (r *pgStore) GetAll(ctx context.Context) (map[string]*Record, error) {
	defer observe("postgres", "get_all", time.Now())
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, data FROM patients ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*Record)
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out[id] = rec
	}
	return out, rows.Err()
}

func (r *pgStore) FindByName(ctx context.Context, name string) (*Record, error) {
	defer observe("postgres", "find_by_name", time.Now())
	return r.scanOne(r.conn(ctx).QueryRow(ctx,
		`SELECT data FROM patients WHERE name_key = $1 ORDER BY created_at LIMIT 1`, nameKey(name)))
}

func (r *pgStore) Save(ctx context.Context, rec *Record) error {
	defer observe("postgres", "save", time.Now())
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, name, name_key, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			name_key = EXCLUDED.name_key,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		rec.PatientID, rec.Demographics.Name, nameKey(rec.Demographics.Name), data, rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (r *pgStore) Delete(ctx context.Context, id string) (bool, error) {
	defer observe("postgres", "delete", time.Now())
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
