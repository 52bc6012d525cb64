package stream

import (
	"encoding/json"
	"strings"
)

// frameMatcher is one recognized upstream payload shape: a predicate plus an
// extractor. Matchers run in fixed priority order so discrimination stays
// explicit instead of duck-typed.
type frameMatcher func(raw []byte) (Event, bool)

var matchers = []frameMatcher{
	matchContentBlockDelta,
	matchChoicesDelta,
	matchTypedDelta,
	matchTypedError,
	matchMessageStop,
}

// Normalizer folds raw provider stream bytes into canonical events. It
// tolerates frames split across reads by buffering until a complete
// blank-line-delimited frame is available, and emits done exactly once.
type Normalizer struct {
	buf  strings.Builder
	done bool
}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Feed consumes one chunk of upstream bytes and returns every event completed
// by it. Partial trailing frames stay buffered for the next call.
func (n *Normalizer) Feed(p []byte) []Event {
	if n.done || len(p) == 0 {
		return nil
	}
	n.buf.Write(p)

	data := n.buf.String()
	var events []Event
	for {
		idx := strings.Index(data, "\n\n")
		if idx < 0 {
			break
		}
		frame := data[:idx]
		data = data[idx+2:]
		events = append(events, n.processFrame(frame)...)
		if n.done {
			data = ""
			break
		}
	}
	n.buf.Reset()
	n.buf.WriteString(data)
	return events
}

// Flush drains any trailing partial frame after the upstream body ends and
// terminates the stream. The final done is emitted here unless a done was
// already seen mid-stream.
func (n *Normalizer) Flush() []Event {
	if n.done {
		return nil
	}
	var events []Event
	if rest := strings.TrimSpace(n.buf.String()); rest != "" {
		events = append(events, n.processFrame(rest)...)
	}
	n.buf.Reset()
	if !n.done {
		n.done = true
		events = append(events, Done())
	}
	return events
}

// processFrame scans one frame for event/data lines. When a frame carries
// multiple data lines the last one wins.
func (n *Normalizer) processFrame(frame string) []Event {
	var payload string
	seenData := false
	seenField := false
	for _, line := range strings.Split(frame, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, ":") {
			seenField = true
			continue
		}
		if strings.HasPrefix(line, "data:") {
			payload = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			seenData = true
			continue
		}
		if strings.HasPrefix(line, "event:") || strings.HasPrefix(line, "id:") || strings.HasPrefix(line, "retry:") {
			seenField = true
		}
	}
	if !seenData {
		if seenField {
			// SSE framing with no data payload is control traffic, not text.
			return nil
		}
		// Not SSE-framed at all; treat the whole frame as plain text.
		payload = strings.TrimSpace(frame)
		if payload == "" {
			return nil
		}
	}
	return n.dispatch(payload)
}

func (n *Normalizer) dispatch(payload string) []Event {
	if payload == "" {
		return nil
	}
	if payload == "[DONE]" {
		n.done = true
		return []Event{Done()}
	}
	raw := []byte(payload)
	if !json.Valid(raw) {
		// Providers that stream bare text chunks get forwarded verbatim.
		return []Event{Delta(payload)}
	}
	for _, match := range matchers {
		ev, ok := match(raw)
		if !ok {
			continue
		}
		if ev.Kind == KindDone {
			n.done = true
		}
		if ev.Kind == KindDelta && ev.Text == "" {
			return nil
		}
		return []Event{ev}
	}
	// Valid JSON with an unrecognized shape is control chatter, not text.
	return nil
}

func matchContentBlockDelta(raw []byte) (Event, bool) {
	var v struct {
		Type  string `json:"type"`
		Delta struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Event{}, false
	}
	if v.Type != "content_block_delta" || v.Delta.Type != "text_delta" {
		return Event{}, false
	}
	return Delta(v.Delta.Text), true
}

func matchChoicesDelta(raw []byte) (Event, bool) {
	var v struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Event{}, false
	}
	if len(v.Choices) == 0 {
		return Event{}, false
	}
	return Delta(v.Choices[0].Delta.Content), true
}

func matchTypedDelta(raw []byte) (Event, bool) {
	var v struct {
		Type    string          `json:"type"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Event{}, false
	}
	if v.Type != "delta" {
		return Event{}, false
	}
	var text string
	if err := json.Unmarshal(v.Content, &text); err != nil {
		return Event{}, false
	}
	return Delta(text), true
}

func matchTypedError(raw []byte) (Event, bool) {
	var v struct {
		Type  string `json:"type"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Event{}, false
	}
	if v.Type != "error" {
		return Event{}, false
	}
	msg := v.Error.Message
	if msg == "" {
		msg = v.Message
	}
	if msg == "" {
		msg = "upstream stream error"
	}
	return ErrorEvent(msg), true
}

func matchMessageStop(raw []byte) (Event, bool) {
	var v struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Event{}, false
	}
	if v.Type != "message_stop" {
		return Event{}, false
	}
	return Done(), true
}
