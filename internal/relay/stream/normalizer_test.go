package stream

import (
	"strings"
	"testing"
)

func collect(n *Normalizer, chunks ...string) []Event {
	var events []Event
	for _, c := range chunks {
		events = append(events, n.Feed([]byte(c))...)
	}
	events = append(events, n.Flush()...)
	return events
}

func textOf(events []Event) string {
	var sb strings.Builder
	for _, ev := range events {
		if ev.Kind == KindDelta {
			sb.WriteString(ev.Text)
		}
	}
	return sb.String()
}

func doneCount(events []Event) int {
	count := 0
	for _, ev := range events {
		if ev.Kind == KindDone {
			count++
		}
	}
	return count
}

func TestNormalizerAnthropicFraming(t *testing.T) {
	n := NewNormalizer()
	events := collect(n,
		"data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Hel\"}}\n\n",
		"data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"lo\"}}\n\n",
		"data: {\"type\":\"message_stop\"}\n\n",
	)
	if got := textOf(events); got != "Hello" {
		t.Fatalf("expected text %q, got %q", "Hello", got)
	}
	if doneCount(events) != 1 {
		t.Fatalf("expected exactly one done, got %d", doneCount(events))
	}
	if events[len(events)-1].Kind != KindDone {
		t.Fatalf("expected done last, got %q", events[len(events)-1].Kind)
	}
}

func TestNormalizerOpenAIFraming(t *testing.T) {
	n := NewNormalizer()
	events := collect(n,
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hi \"}}]}\n\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"there\"}}]}\n\n",
		"data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n",
		"data: [DONE]\n\n",
	)
	if got := textOf(events); got != "Hi there" {
		t.Fatalf("expected text %q, got %q", "Hi there", got)
	}
	if doneCount(events) != 1 {
		t.Fatalf("expected exactly one done, got %d", doneCount(events))
	}
}

func TestNormalizerTypedDeltaFraming(t *testing.T) {
	n := NewNormalizer()
	events := collect(n,
		"data: {\"type\":\"delta\",\"content\":\"abc\"}\n\n",
		"data: {\"type\":\"delta\",\"content\":\"def\"}\n\n",
	)
	if got := textOf(events); got != "abcdef" {
		t.Fatalf("expected text %q, got %q", "abcdef", got)
	}
	if doneCount(events) != 1 {
		t.Fatalf("flush should supply the terminal done, got %d", doneCount(events))
	}
}

func TestNormalizerSplitFrames(t *testing.T) {
	whole := "data: {\"type\":\"delta\",\"content\":\"split across reads\"}\n\ndata: [DONE]\n\n"
	for size := 1; size <= 7; size++ {
		n := NewNormalizer()
		var events []Event
		for i := 0; i < len(whole); i += size {
			end := i + size
			if end > len(whole) {
				end = len(whole)
			}
			events = append(events, n.Feed([]byte(whole[i:end]))...)
		}
		events = append(events, n.Flush()...)
		if got := textOf(events); got != "split across reads" {
			t.Fatalf("chunk size %d: expected full text, got %q", size, got)
		}
		if doneCount(events) != 1 {
			t.Fatalf("chunk size %d: expected one done, got %d", size, doneCount(events))
		}
	}
}

func TestNormalizerLastDataLineWins(t *testing.T) {
	n := NewNormalizer()
	events := collect(n,
		"data: {\"type\":\"delta\",\"content\":\"stale\"}\ndata: {\"type\":\"delta\",\"content\":\"fresh\"}\n\n",
	)
	if got := textOf(events); got != "fresh" {
		t.Fatalf("expected last data line to win, got %q", got)
	}
}

func TestNormalizerMalformedJSONForwardedRaw(t *testing.T) {
	n := NewNormalizer()
	events := collect(n, "data: plain text chunk\n\n")
	if got := textOf(events); got != "plain text chunk" {
		t.Fatalf("expected raw forwarding of non-JSON payload, got %q", got)
	}
}

func TestNormalizerUnrecognizedJSONDropped(t *testing.T) {
	n := NewNormalizer()
	events := collect(n,
		"data: {\"type\":\"ping\"}\n\n",
		"data: {\"object\":\"thread.run\",\"status\":\"queued\"}\n\n",
		"data: {\"type\":\"delta\",\"content\":\"kept\"}\n\n",
	)
	if got := textOf(events); got != "kept" {
		t.Fatalf("control chatter should be dropped, got %q", got)
	}
}

func TestNormalizerErrorFrame(t *testing.T) {
	n := NewNormalizer()
	events := collect(n, "data: {\"type\":\"error\",\"error\":{\"message\":\"overloaded\"}}\n\n")
	var found bool
	for _, ev := range events {
		if ev.Kind == KindError {
			found = true
			if ev.Message != "overloaded" {
				t.Fatalf("expected error message %q, got %q", "overloaded", ev.Message)
			}
		}
	}
	if !found {
		t.Fatalf("expected an error event, got %+v", events)
	}
}

func TestNormalizerStopsAfterDone(t *testing.T) {
	n := NewNormalizer()
	events := n.Feed([]byte("data: [DONE]\n\ndata: {\"type\":\"delta\",\"content\":\"late\"}\n\n"))
	if got := textOf(events); got != "" {
		t.Fatalf("frames after [DONE] should be ignored, got %q", got)
	}
	if doneCount(events) != 1 {
		t.Fatalf("expected one done, got %d", doneCount(events))
	}
	if extra := n.Flush(); len(extra) != 0 {
		t.Fatalf("flush after done should emit nothing, got %+v", extra)
	}
}

func TestNormalizerTrailingPartialFrameFlushed(t *testing.T) {
	n := NewNormalizer()
	events := n.Feed([]byte("data: {\"type\":\"delta\",\"content\":\"tail\"}"))
	if len(events) != 0 {
		t.Fatalf("partial frame should stay buffered, got %+v", events)
	}
	events = n.Flush()
	if got := textOf(events); got != "tail" {
		t.Fatalf("expected buffered tail on flush, got %q", got)
	}
	if doneCount(events) != 1 {
		t.Fatalf("expected terminal done on flush, got %d", doneCount(events))
	}
}

func TestNormalizerCommentLinesIgnored(t *testing.T) {
	n := NewNormalizer()
	events := collect(n, ": keepalive\ndata: {\"type\":\"delta\",\"content\":\"ok\"}\n\n")
	if got := textOf(events); got != "ok" {
		t.Fatalf("comment lines should be skipped, got %q", got)
	}
}

func TestNormalizerFieldOnlyFramesDropped(t *testing.T) {
	n := NewNormalizer()
	input := "event: ping\n\n" +
		"id: 42\nretry: 3000\n\n" +
		"data: {\"type\":\"delta\",\"content\":\"real\"}\n\n" +
		"data: [DONE]\n\n"
	events := collect(n, input)
	if got := textOf(events); got != "real" {
		t.Fatalf("frames with SSE fields but no data payload must not leak as text, got %q", got)
	}
	if doneCount(events) != 1 {
		t.Fatalf("expected exactly one done, got %d", doneCount(events))
	}
}
