package patient

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func openTestBolt(t *testing.T) Store {
	t.Helper()
	db, err := OpenBoltDB(filepath.Join(t.TempDir(), "nested", "hce.db"))
	if err != nil {
		t.Fatalf("OpenBoltDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBoltStore(db)
}

func testRecord(id, name string) *Record {
	rec := &Record{
		PatientID:    id,
		Demographics: Demographics{Name: name, Age: 50, Sex: "M"},
		CreatedAt:    fixedNow,
	}
	rec.ensureCollections()
	return rec
}

// storeContract runs the behavior every Store implementation shares.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	if _, err := store.Get(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rec := testRecord("p1", "Maria Gómez")
	rec.Medications = append(rec.Medications, Medication{Name: "Aspirin"})
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// The stored copy is independent from the caller's record.
	rec.Medications[0].Name = "changed"
	got, err := store.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Medications[0].Name != "Aspirin" {
		t.Errorf("expected stored copy, got %+v", got.Medications)
	}

	byName, err := store.FindByName(ctx, "  MARIA GÓMEZ")
	if err != nil || byName.PatientID != "p1" {
		t.Fatalf("FindByName: %+v, %v", byName, err)
	}

	// Renaming moves the name index.
	got.Demographics.Name = "Maria Gomez Ruiz"
	if err := store.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.FindByName(ctx, "maria gómez"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected old name to be unindexed, got %v", err)
	}
	if _, err := store.FindByName(ctx, "maria gomez ruiz"); err != nil {
		t.Errorf("expected new name to be indexed, got %v", err)
	}

	if err := store.Save(ctx, testRecord("p2", "Other")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 2 || all["p2"] == nil {
		t.Errorf("expected 2 records, got %v", all)
	}

	ok, err := store.Delete(ctx, "p1")
	if err != nil || !ok {
		t.Fatalf("Delete: %v, %v", ok, err)
	}
	ok, err = store.Delete(ctx, "p1")
	if err != nil || ok {
		t.Errorf("expected second delete to report false, got %v, %v", ok, err)
	}
	if _, err := store.FindByName(ctx, "maria gomez ruiz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected deleted name to be unindexed, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestBoltStore(t *testing.T) {
	storeContract(t, openTestBolt(t))
}

func TestBoltStore_NameIndexKeepsOtherPatient(t *testing.T) {
	store := openTestBolt(t)
	ctx := context.Background()

	store.Save(ctx, testRecord("a", "Same Name"))
	store.Save(ctx, testRecord("b", "Same Name"))
	store.Delete(ctx, "a")

	got, err := store.FindByName(ctx, "same name")
	if err != nil || got.PatientID != "b" {
		t.Errorf("expected b to stay indexed, got %+v, %v", got, err)
	}
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hce.db")
	db, err := OpenBoltDB(path)
	if err != nil {
		t.Fatalf("OpenBoltDB: %v", err)
	}
	NewBoltStore(db).Save(context.Background(), testRecord("p1", "Durable"))
	db.Close()

	db, err = OpenBoltDB(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if _, err := NewBoltStore(db).Get(context.Background(), "p1"); err != nil {
		t.Errorf("expected record after reopen, got %v", err)
	}
}

type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
	gets    int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failGet {
		return "", errors.New("connection refused")
	}
	v, ok := f.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeKV) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

// countingStore counts Get calls reaching the backing store.
type countingStore struct {
	Store
	gets int
}

func (c *countingStore) Get(ctx context.Context, id string) (*Record, error) {
	c.gets++
	return c.Store.Get(ctx, id)
}

func TestCachedStore_Contract(t *testing.T) {
	storeContract(t, NewCachedStore(NewMemoryStore(), newFakeKV(), time.Minute, zerolog.Nop()))
}

func TestCachedStore_ReadThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{Store: NewMemoryStore()}
	kv := newFakeKV()
	store := NewCachedStore(backing, kv, time.Minute, zerolog.Nop())

	store.Save(ctx, testRecord("p1", "Cached"))
	for i := 0; i < 3; i++ {
		if _, err := store.Get(ctx, "p1"); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if backing.gets != 1 {
		t.Errorf("expected one backing read, got %d", backing.gets)
	}

	// A write evicts the snapshot so the next read sees it.
	rec := testRecord("p1", "Cached")
	rec.ClinicalSummary = "updated"
	store.Save(ctx, rec)
	got, _ := store.Get(ctx, "p1")
	if got.ClinicalSummary != "updated" || backing.gets != 2 {
		t.Errorf("expected fresh read after save, got %q with %d reads", got.ClinicalSummary, backing.gets)
	}
}

func TestCachedStore_CacheFailureFallsThrough(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.failGet = true
	store := NewCachedStore(NewMemoryStore(), kv, time.Minute, zerolog.Nop())

	store.Save(ctx, testRecord("p1", "Unavailable"))
	if _, err := store.Get(ctx, "p1"); err != nil {
		t.Errorf("expected cache failure to be ignored, got %v", err)
	}
}

func TestCachedStore_CorruptSnapshotEvicted(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := NewCachedStore(NewMemoryStore(), kv, time.Minute, zerolog.Nop())

	store.Save(ctx, testRecord("p1", "Corrupt"))
	kv.data[cacheKey("p1")] = "{not json"
	got, err := store.Get(ctx, "p1")
	if err != nil || got.PatientID != "p1" {
		t.Fatalf("Get: %+v, %v", got, err)
	}
	if v := kv.data[cacheKey("p1")]; v == "{not json" {
		t.Error("expected corrupt snapshot to be replaced")
	}
}
