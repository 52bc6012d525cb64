package stream

// Event kinds, in the order a healthy stream emits them: zero or more deltas,
// then done. Attribution and error interleave when mentions fan out.
const (
	KindDelta       = "delta"
	KindAttribution = "attribution"
	KindError       = "error"
	KindDone        = "done"
)

// Event is the canonical stream unit every upstream framing normalizes into.
type Event struct {
	Kind       string `json:"kind"`
	Text       string `json:"text,omitempty"`
	ModelLabel string `json:"model_label,omitempty"`
	Message    string `json:"message,omitempty"`
}

func Delta(text string) Event         { return Event{Kind: KindDelta, Text: text} }
func Attribution(label string) Event  { return Event{Kind: KindAttribution, ModelLabel: label} }
func ErrorEvent(message string) Event { return Event{Kind: KindError, Message: message} }
func Done() Event                     { return Event{Kind: KindDone} }
