package cache

// ScopedKeyer prefixes every key of an inner Keyer. Servers sharing one
// Redis instance use it to keep their entries apart.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns a keyer that prepends prefix to inner's keys. A nil
// inner uses the DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// AnalysisKey returns the prefixed analysis key.
func (k *ScopedKeyer) AnalysisKey(root string, opts AnalysisKeyOpts) string {
	return k.prefix + k.inner.AnalysisKey(root, opts)
}
