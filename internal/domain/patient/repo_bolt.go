package patient

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"

	"github.com/hcevision/cardio/internal/platform/metrics"
)

var (
	recordsBucket = []byte("patients")
	namesBucket   = []byte("patient_names")
)

type boltStore struct{ db *bolt.DB }

// OpenBoltDB opens the embedded database at path, creating the file, its
// directory and the buckets when missing.
func OpenBoltDB(path string) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(recordsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(namesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bolt buckets: %w", err)
	}
	return db, nil
}

func NewBoltStore(db *bolt.DB) Store {
	return &boltStore{db: db}
}

func (s *boltStore) Get(_ context.Context, id string) (*Record, error) {
	defer observe("bolt", "get", time.Now())
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(recordsBucket).Get([]byte(id)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}
	return decodeRecord(data)
}

func (s *boltStore) GetAll(_ context.Context) (map[string]*Record, error) {
	defer observe("bolt", "get_all", time.Now())
	out := make(map[string]*Record)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			out[string(k)] = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *boltStore) FindByName(ctx context.Context, name string) (*Record, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		id = string(tx.Bucket(namesBucket).Get([]byte(nameKey(name))))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Save writes the record and keeps the name index in the same transaction.
func (s *boltStore) Save(_ context.Context, rec *Record) error {
	defer observe("bolt", "save", time.Now())
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		records, names := tx.Bucket(recordsBucket), tx.Bucket(namesBucket)
		if prev := records.Get([]byte(rec.PatientID)); prev != nil {
			if err := unindex(names, prev, rec.PatientID); err != nil {
				return err
			}
		}
		if err := records.Put([]byte(rec.PatientID), data); err != nil {
			return err
		}
		return names.Put([]byte(nameKey(rec.Demographics.Name)), []byte(rec.PatientID))
	})
}

func (s *boltStore) Delete(_ context.Context, id string) (bool, error) {
	defer observe("bolt", "delete", time.Now())
	var found bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(recordsBucket)
		prev := records.Get([]byte(id))
		if prev == nil {
			return nil
		}
		found = true
		if err := unindex(tx.Bucket(namesBucket), prev, id); err != nil {
			return err
		}
		return records.Delete([]byte(id))
	})
	return found, err
}

// unindex drops the name entry of a stored record if it still points at id.
func unindex(names *bolt.Bucket, stored []byte, id string) error {
	old, err := decodeRecord(stored)
	if err != nil {
		return nil
	}
	key := []byte(nameKey(old.Demographics.Name))
	if string(names.Get(key)) != id {
		return nil
	}
	return names.Delete(key)
}

func observe(backend, op string, start time.Time) {
	metrics.RecordStoreOp(backend, op, time.Since(start))
}
