package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	k := NewDefaultKeyer()
	c := NewNullCache()
	defer c.Close()

	tests := []struct {
		name string
		key  string
		ttl  time.Duration
	}{
		{"pair score", k.PairKey(1, 2, PairKeyOpts{Matrix: 3, Mode: "local"}), PairScoreTTL},
		{"job", k.JobKey("abc", JobKeyOpts{Strategy: "progressive"}), JobTTL},
		{"no expiry", "raw", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Set(ctx, tt.key, []byte("value"), tt.ttl); err != nil {
				t.Fatalf("Set() error: %v", err)
			}
			data, hit, err := c.Get(ctx, tt.key)
			if err != nil || hit || data != nil {
				t.Errorf("Get() = %q, %v, %v, want nil, false, nil", data, hit, err)
			}
			if err := c.Delete(ctx, tt.key); err != nil {
				t.Errorf("Delete() error: %v", err)
			}
		})
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Errorf("Get(missing) = hit %v, err %v, want miss", hit, err)
	}

	want := []byte(strings.Repeat("ACGT", 100))
	if err := c.Set(ctx, "seq", want, 0); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, hit, err := c.Get(ctx, "seq")
	if err != nil || !hit {
		t.Fatalf("Get(seq) = hit %v, err %v, want hit", hit, err)
	}
	if string(got) != string(want) {
		t.Errorf("Get(seq) returned %d bytes, want %d", len(got), len(want))
	}

	if err := c.Delete(ctx, "seq"); err != nil {
		t.Errorf("Delete() error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "seq"); hit {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "seq"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path("k"), []byte("not zstd"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("Get(corrupt) = hit %v, err %v, want silent miss", hit, err)
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), 0); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if n != 5 {
		t.Errorf("Clear() = %d, want 5", n)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Clear() left %d entries in %s", len(entries), filepath.Base(dir))
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
}

func TestFingerprint(t *testing.T) {
	sum := func(parts ...string) uint64 {
		f := NewFingerprint()
		for _, p := range parts {
			f.String(p)
		}
		return f.Sum()
	}
	if sum("ACGT") != sum("ACGT") {
		t.Error("Fingerprint should be deterministic")
	}
	if sum("AC", "GT") == sum("A", "CGT") {
		t.Error("field boundaries should change the fingerprint")
	}

	a, b := NewFingerprint(), NewFingerprint()
	a.Int(1)
	b.Int(256)
	if a.Sum() == b.Sum() {
		t.Error("different ints should produce different fingerprints")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	p1 := k.PairKey(1, 2, PairKeyOpts{Matrix: 7, Mode: "local"})
	if p1 != k.PairKey(1, 2, PairKeyOpts{Matrix: 7, Mode: "local"}) {
		t.Error("PairKey should be deterministic")
	}
	if p1 == k.PairKey(2, 1, PairKeyOpts{Matrix: 7, Mode: "local"}) {
		t.Error("PairKey should depend on argument order")
	}
	if p1 == k.PairKey(1, 2, PairKeyOpts{Matrix: 7, Mode: "global"}) {
		t.Error("Different PairKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(p1, "pair:") {
		t.Errorf("PairKey() = %q, want pair: prefix", p1)
	}

	j1 := k.JobKey("abc", JobKeyOpts{Strategy: "progressive"})
	j2 := k.JobKey("abc", JobKeyOpts{Strategy: "iterative"})
	if j1 == j2 {
		t.Error("Different JobKeyOpts should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "user:123:")
	key := scoped.JobKey("abc", JobKeyOpts{})
	if !strings.HasPrefix(key, "user:123:job:") {
		t.Errorf("ScopedKeyer JobKey should be prefixed: %s", key)
	}

	scoped = NewScopedKeyer(nil, "prefix:")
	if key := scoped.PairKey(1, 2, PairKeyOpts{}); !strings.HasPrefix(key, "prefix:pair:") {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(ErrNetwork)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("wrapped error should unwrap to ErrNetwork")
	}
	if IsRetryable(ErrCorrupt) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	retryDelay = time.Millisecond
	defer func() { retryDelay = 200 * time.Millisecond }()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("success: err %v, calls %d, want nil, 1", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return ErrCorrupt
	})
	if err != ErrCorrupt || calls != 1 {
		t.Errorf("non-retryable: err %v, calls %d, want ErrCorrupt, 1", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("retryable: err %v, calls %d, want nil, 2", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return Retryable(ErrNetwork)
	})
	if !errors.Is(err, ErrNetwork) || calls != retryAttempts {
		t.Errorf("exhausted: err %v, calls %d, want ErrNetwork, %d", err, calls, retryAttempts)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("RetryWithBackoff() = %v, want context.Canceled", err)
	}
}

func TestClassify(t *testing.T) {
	if classify(nil) != nil {
		t.Error("classify(nil) should be nil")
	}
	if err := classify(redis.Nil); err != redis.Nil {
		t.Errorf("classify(redis.Nil) = %v, want redis.Nil", err)
	}
	if IsRetryable(classify(ErrCorrupt)) {
		t.Error("non-network errors should not be retryable")
	}
}
