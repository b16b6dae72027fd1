package patient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Store persists whole records keyed by patient id. Get returns ErrNotFound
// for an unknown id; Delete reports whether a record was removed.
type Store interface {
	Get(ctx context.Context, id string) (*Record, error)
	GetAll(ctx context.Context) (map[string]*Record, error)
	FindByName(ctx context.Context, name string) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) (bool, error)
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func encodeRecord(rec *Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", rec.PatientID, err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	rec.ensureCollections()
	return &rec, nil
}
