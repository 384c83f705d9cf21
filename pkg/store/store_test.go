package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/matzehuels/poa/pkg/po"
)

func record(t *testing.T, key string, ttl time.Duration) *Record {
	t.Helper()
	rec, err := NewRecord(key, "iterative", po.FromSequence("s1", "first", []byte("ACGT")), 0, ttl)
	if err != nil {
		t.Fatalf("NewRecord() error: %v", err)
	}
	return rec
}

func backends(t *testing.T) map[string]Store {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
	}
}

func TestNewRecord(t *testing.T) {
	rec := record(t, "k", time.Hour)
	if rec.ID == "" || rec.Name != "s1" || rec.Sequences != 1 || rec.Nodes != 4 || rec.Columns != 4 {
		t.Errorf("NewRecord() = %+v", rec)
	}
	g, err := rec.Graph()
	if err != nil {
		t.Fatalf("Graph() error: %v", err)
	}
	if string(g.Residues()) != "ACGT" {
		t.Errorf("Graph().Residues() = %q, want ACGT", g.Residues())
	}
	if other := record(t, "k", time.Hour); other.ID == rec.ID {
		t.Error("NewRecord() reused an id")
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close(ctx)

			got, err := s.Get(ctx, "missing")
			if err != nil || got != nil {
				t.Errorf("Get(missing) = %v, %v, want nil, nil", got, err)
			}

			rec := record(t, "job", time.Hour)
			if err := s.Save(ctx, rec); err != nil {
				t.Fatalf("Save() error: %v", err)
			}
			got, err = s.Get(ctx, rec.ID)
			if err != nil || got == nil {
				t.Fatalf("Get() = %v, %v", got, err)
			}
			if got.PO != rec.PO || got.Key != "job" {
				t.Errorf("Get() = %+v, want %+v", got, rec)
			}

			newer := record(t, "job", time.Hour)
			newer.CreatedAt = rec.CreatedAt.Add(time.Minute)
			if err := s.Save(ctx, newer); err != nil {
				t.Fatalf("Save() error: %v", err)
			}
			found, err := s.FindByKey(ctx, "job")
			if err != nil || found == nil || found.ID != newer.ID {
				t.Errorf("FindByKey() = %v, %v, want %s", found, err, newer.ID)
			}
			if found, _ := s.FindByKey(ctx, "other"); found != nil {
				t.Errorf("FindByKey(other) = %v, want nil", found)
			}

			if err := s.Delete(ctx, rec.ID); err != nil {
				t.Fatalf("Delete() error: %v", err)
			}
			if got, _ := s.Get(ctx, rec.ID); got != nil {
				t.Errorf("Get() after Delete = %v, want nil", got)
			}
		})
	}
}

func TestStoreExpiry(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			old := record(t, "job", -time.Minute)
			live := record(t, "job", time.Hour)
			for _, r := range []*Record{old, live} {
				if err := s.Save(ctx, r); err != nil {
					t.Fatalf("Save() error: %v", err)
				}
			}
			if got, _ := s.Get(ctx, old.ID); got != nil {
				t.Errorf("Get(expired) = %v, want nil", got)
			}
			n, err := s.Cleanup(ctx)
			if err != nil || n != 1 {
				t.Errorf("Cleanup() = %d, %v, want 1, nil", n, err)
			}
			if got, _ := s.Get(ctx, live.ID); got == nil {
				t.Error("Cleanup() removed a live record")
			}
		})
	}
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("POA_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("POA_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := NewMongoStore(ctx, MongoConfig{URI: uri, Database: "poa_test"})
	if err != nil {
		t.Fatalf("NewMongoStore() error: %v", err)
	}
	defer s.Close(ctx)

	rec := record(t, "mongo-job", time.Hour)
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	defer s.Delete(ctx, rec.ID)
	got, err := s.Get(ctx, rec.ID)
	if err != nil || got == nil || got.PO != rec.PO {
		t.Errorf("Get() = %v, %v", got, err)
	}
}
