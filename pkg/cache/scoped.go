package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one Redis instance without seeing each other's entries.
//
// Example usage:
//
//	staging := NewScopedKeyer(NewDefaultKeyer(), "staging:")
//	prod := NewScopedKeyer(NewDefaultKeyer(), "prod:")
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

// NotesKey generates a prefixed notes key.
func (k *ScopedKeyer) NotesKey(transcriptHash string, opts ModelKeyOpts) string {
	return k.prefix + k.inner.NotesKey(transcriptHash, opts)
}

// ExpandKey generates a prefixed expansion key.
func (k *ScopedKeyer) ExpandKey(text, context string, opts ModelKeyOpts) string {
	return k.prefix + k.inner.ExpandKey(text, context, opts)
}
