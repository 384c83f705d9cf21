// Package cache stores intermediate alignment results.
//
// Pairwise similarity scores and finished jobs are expensive to recompute
// and depend only on their inputs, so they are cached under content-derived
// keys. Three backends are provided:
//   - [NullCache]: caching disabled
//   - [FileCache]: local directory, used by the CLI
//   - [RedisCache]: shared cache for server deployments
//
// Keys come from a [Keyer]. [DefaultKeyer] hashes the inputs;
// [ScopedKeyer] adds a namespace prefix.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Default TTLs.
const (
	// PairScoreTTL is the lifetime of a cached pairwise alignment score.
	PairScoreTTL = 30 * 24 * time.Hour

	// JobTTL is the lifetime of a cached job result.
	JobTTL = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// PairKey returns the key of the pairwise score of two graphs.
	PairKey(fpX, fpY uint64, opts PairKeyOpts) string

	// JobKey returns the key of a finished job over the given input hash.
	JobKey(inputHash string, opts JobKeyOpts) string
}

// PairKeyOpts holds the settings a pairwise score depends on.
type PairKeyOpts struct {
	Matrix uint64 `json:"matrix"`
	Mode   string `json:"mode"`
}

// JobKeyOpts holds the settings a job result depends on.
type JobKeyOpts struct {
	Matrix        uint64  `json:"matrix"`
	Mode          string  `json:"mode"`
	Strategy      string  `json:"strategy"`
	Policy        string  `json:"policy"`
	FuseAll       bool    `json:"fuse_all"`
	PreserveOrder bool    `json:"preserve_order"`
	Bundles       bool    `json:"bundles"`
	MinFraction   float64 `json:"min_fraction"`
	MinPathLength int     `json:"min_path_length"`
	TitleWeights  bool    `json:"title_weights"`
}

// DefaultKeyer builds keys from hashed inputs.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// PairKey hashes the two fingerprints in order, so (x, y) and (y, x) are
// distinct entries.
func (DefaultKeyer) PairKey(fpX, fpY uint64, opts PairKeyOpts) string {
	return hashKey("pair", fmt.Sprintf("%016x", fpX), fmt.Sprintf("%016x", fpY), opts)
}

// JobKey hashes the input hash and the job settings.
func (DefaultKeyer) JobKey(inputHash string, opts JobKeyOpts) string {
	return hashKey("job", inputHash, opts)
}

var _ Keyer = DefaultKeyer{}
