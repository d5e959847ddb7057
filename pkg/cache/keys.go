package cache

// Key types, also used as observability labels.
const (
	KeyTypeNotes  = "notes"
	KeyTypeExpand = "expand"
)

// ModelKeyOpts identifies the model configuration that produced an entry.
type ModelKeyOpts struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	PromptVersion string `json:"prompt_version"`
}

// Keyer generates cache keys.
type Keyer interface {
	// NotesKey is the key for notes generated from a transcript.
	NotesKey(transcriptHash string, opts ModelKeyOpts) string
	// ExpandKey is the key for an expansion of text within a key point's content.
	ExpandKey(text, context string, opts ModelKeyOpts) string
}

// DefaultKeyer builds keys of the form "<type>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// NotesKey implements [Keyer].
func (DefaultKeyer) NotesKey(transcriptHash string, opts ModelKeyOpts) string {
	return hashKey(KeyTypeNotes, transcriptHash, opts)
}

// ExpandKey implements [Keyer].
func (DefaultKeyer) ExpandKey(text, context string, opts ModelKeyOpts) string {
	return hashKey(KeyTypeExpand, text, context, opts)
}
