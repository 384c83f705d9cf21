package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments or users
// can share one backend without colliding.
//
//	serverKeyer := NewScopedKeyer(NewDefaultKeyer(), "poa:api:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// PairKey generates a prefixed pair score key.
func (k *ScopedKeyer) PairKey(fpX, fpY uint64, opts PairKeyOpts) string {
	return k.prefix + k.inner.PairKey(fpX, fpY, opts)
}

// JobKey generates a prefixed job key.
func (k *ScopedKeyer) JobKey(inputHash string, opts JobKeyOpts) string {
	return k.prefix + k.inner.JobKey(inputHash, opts)
}
