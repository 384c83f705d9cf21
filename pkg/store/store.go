// Package store keeps finished alignments for later retrieval.
//
// A [Record] holds one alignment job's result: the graph serialized in the
// native PO format plus summary counts. Backends implement [Store]:
//   - memory: in-process map for tests and single-instance servers
//   - file: one JSON file per record, for the CLI
//   - mongo: MongoDB collection for shared deployments
//
// Records expire; expired records are never returned and are removed by
// Cleanup (MongoDB also removes them through a TTL index).
package store

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/poa/pkg/io"
	"github.com/matzehuels/poa/pkg/po"
)

// DefaultTTL is how long a stored alignment is kept.
const DefaultTTL = 30 * 24 * time.Hour

// Record is a stored alignment.
type Record struct {
	ID        string    `json:"id" bson:"_id"`
	Key       string    `json:"key,omitempty" bson:"key"`
	Name      string    `json:"name" bson:"name"`
	Strategy  string    `json:"strategy" bson:"strategy"`
	Sequences int       `json:"sequences" bson:"sequences"`
	Nodes     int       `json:"nodes" bson:"nodes"`
	Columns   int       `json:"columns" bson:"columns"`
	Bundles   int       `json:"bundles" bson:"bundles"`
	PO        string    `json:"po" bson:"po"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

// NewID returns a fresh record id.
func NewID() string {
	return uuid.NewString()
}

// NewRecord serializes g into a record with a fresh id. key is the job
// cache key the result was computed for and may be empty.
func NewRecord(key, strategy string, g *po.Graph, bundles int, ttl time.Duration) (*Record, error) {
	var buf bytes.Buffer
	if err := io.WritePO(g, &buf); err != nil {
		return nil, err
	}
	_, ncol := g.Columns()
	now := time.Now().UTC()
	return &Record{
		ID:        NewID(),
		Key:       key,
		Name:      g.Name,
		Strategy:  strategy,
		Sequences: len(g.Sources),
		Nodes:     g.Len(),
		Columns:   ncol,
		Bundles:   bundles,
		PO:        buf.String(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsExpired reports whether the record has outlived its TTL.
func (r *Record) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// Graph parses the stored PO graph.
func (r *Record) Graph() (*po.Graph, error) {
	return io.ReadPO(bytes.NewReader([]byte(r.PO)))
}

// Store is the interface for alignment storage backends.
type Store interface {
	// Get retrieves a record by id.
	// Returns nil, nil if the record doesn't exist or has expired.
	Get(ctx context.Context, id string) (*Record, error)

	// FindByKey returns the newest unexpired record stored under a job key,
	// or nil, nil.
	FindByKey(ctx context.Context, key string) (*Record, error)

	// Save stores a record, replacing any record with the same id.
	Save(ctx context.Context, rec *Record) error

	// Delete removes a record.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired records and returns how many were removed.
	Cleanup(ctx context.Context) (int, error)

	// Close releases the backend's resources.
	Close(ctx context.Context) error
}
