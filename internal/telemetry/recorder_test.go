package telemetry

import (
	"fmt"
	"testing"
)

func TestRecorderNewestFirst(t *testing.T) {
	r := NewRecorder(10)
	for i := 0; i < 3; i++ {
		r.Add(Record{SessionID: "s1", Model: fmt.Sprintf("m%d", i)})
	}

	got := r.Recent(0, "")
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].Model != "m2" || got[2].Model != "m0" {
		t.Fatalf("expected newest first, got %+v", got)
	}
}

func TestRecorderRingEviction(t *testing.T) {
	r := NewRecorder(3)
	for i := 0; i < 5; i++ {
		r.Add(Record{Model: fmt.Sprintf("m%d", i)})
	}

	got := r.Recent(0, "")
	if len(got) != 3 {
		t.Fatalf("ring should cap at capacity, got %d", len(got))
	}
	if got[0].Model != "m4" || got[2].Model != "m2" {
		t.Fatalf("oldest records should be evicted, got %+v", got)
	}
}

func TestRecorderSessionFilterAndLimit(t *testing.T) {
	r := NewRecorder(10)
	for i := 0; i < 4; i++ {
		r.Add(Record{SessionID: "a", Model: fmt.Sprintf("a%d", i)})
		r.Add(Record{SessionID: "b", Model: fmt.Sprintf("b%d", i)})
	}

	got := r.Recent(2, "a")
	if len(got) != 2 {
		t.Fatalf("expected 2 filtered records, got %d", len(got))
	}
	for _, rec := range got {
		if rec.SessionID != "a" {
			t.Fatalf("filter leaked session %q", rec.SessionID)
		}
	}
	if got[0].Model != "a3" {
		t.Fatalf("expected newest filtered record first, got %+v", got)
	}
}

func TestRecorderStampsCreatedAt(t *testing.T) {
	r := NewRecorder(2)
	r.Add(Record{Model: "m"})
	got := r.Recent(1, "")
	if len(got) != 1 || got[0].CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be stamped, got %+v", got)
	}
}
