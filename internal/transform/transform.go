// internal/transform/transform.go
package transform

import "context"

// Kind identifies a transformation action.
type Kind string

const (
	KindExpand    Kind = "expand"
	KindSummarize Kind = "summarize"
	KindRephrase  Kind = "rephrase"
	KindRevise    Kind = "revise"
)

// Kinds lists every supported action, in menu order.
func Kinds() []Kind {
	return []Kind{KindExpand, KindSummarize, KindRephrase, KindRevise}
}

// Valid reports whether k names a supported action.
func (k Kind) Valid() bool {
	switch k {
	case KindExpand, KindSummarize, KindRephrase, KindRevise:
		return true
	}
	return false
}

// Request describes one transformation.
type Request struct {
	Text            string // the selected text to transform
	Kind            Kind
	Instructions    string // optional user guidance
	DocumentContext string // optional surrounding text for the model
}

// Transformer is the external transformation collaborator: text in, text
// out. Implementations return plain transformed text; callers still run
// Clean on it since raw model output may carry wrapper artifacts.
type Transformer interface {
	Transform(ctx context.Context, req Request) (string, error)
}
