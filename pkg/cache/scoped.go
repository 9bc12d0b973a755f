package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// Useful when several tenants or environments share one Redis instance.
//
// Example usage:
//
//	// Per-ledger keys
//	ledgerKeyer := NewScopedKeyer(NewDefaultKeyer(), "ledger:main:")
//
//	// Global keys
//	globalKeyer := NewDefaultKeyer()
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

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// GraphKey generates a prefixed key for decoded graph caching.
func (k *ScopedKeyer) GraphKey(payloadHash string, opts GraphKeyOpts) string {
	return k.prefix + k.inner.GraphKey(payloadHash, opts)
}

// ChartKey generates a prefixed key for annotated chart caching.
func (k *ScopedKeyer) ChartKey(graphHash string, opts ChartKeyOpts) string {
	return k.prefix + k.inner.ChartKey(graphHash, opts)
}

// ArtifactKey generates a prefixed key for exported artifact caching.
func (k *ScopedKeyer) ArtifactKey(chartHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(chartHash, opts)
}
