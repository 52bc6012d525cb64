package memory

import (
	"strings"
	"testing"
)

func TestValidateSessionID(t *testing.T) {
	valid := []string{"abc", "session-1", "A1_b2-c3", " padded-ok ", strings.Repeat("x", 128)}
	for _, in := range valid {
		if _, err := ValidateSessionID(in); err != nil {
			t.Fatalf("expected %q valid: %v", in, err)
		}
	}

	invalid := []string{"", "ab", "-leading-dash", "_leading_underscore", "has space", "has/slash", strings.Repeat("x", 129)}
	for _, in := range invalid {
		if _, err := ValidateSessionID(in); err == nil {
			t.Fatalf("expected %q invalid", in)
		}
	}
}

func TestValidateSessionIDTrims(t *testing.T) {
	got, err := ValidateSessionID("  sess-1  ")
	if err != nil {
		t.Fatalf("trimmed id should validate: %v", err)
	}
	if got != "sess-1" {
		t.Fatalf("expected trimmed id, got %q", got)
	}
}

func TestEnvelopeValidate(t *testing.T) {
	env := &Envelope{
		SessionID: "sess-1",
		Payload: Payload{
			ContextEntries: []ContextEntryItem{
				{Role: "user", Content: "hi"},
				{Role: "assistant", Content: "hello"},
				{Role: "tool", Content: "{}"},
			},
		},
	}
	if err := env.Validate(); err != nil {
		t.Fatalf("valid envelope rejected: %v", err)
	}

	env.Payload.ContextEntries = append(env.Payload.ContextEntries, ContextEntryItem{Role: "moderator", Content: "x"})
	if err := env.Validate(); err == nil {
		t.Fatalf("unknown role should be rejected")
	}

	bad := &Envelope{SessionID: "sess-1", ContextVersion: -1}
	if err := bad.Validate(); err == nil {
		t.Fatalf("negative context_version should be rejected")
	}

	if err := (&Envelope{SessionID: "!"}).Validate(); err == nil {
		t.Fatalf("bad session id should be rejected")
	}
}

func TestLimitsForMode(t *testing.T) {
	cases := []struct {
		mode string
		want Limits
	}{
		{ModeSummary, Limits{Entries: 30, Nodes: 20, Events: 10, Artifacts: 10}},
		{ModeDelta, Limits{Entries: 60, Nodes: 40, Events: 30, Artifacts: 25}},
		{ModeFull, Limits{Entries: 200, Nodes: 100, Events: 100, Artifacts: 100}},
		{"", Limits{Entries: 200, Nodes: 100, Events: 100, Artifacts: 100}},
		{"SUMMARY", Limits{Entries: 30, Nodes: 20, Events: 10, Artifacts: 10}},
	}
	for _, tc := range cases {
		if got := LimitsForMode(tc.mode); got != tc.want {
			t.Fatalf("mode %q: got %+v, want %+v", tc.mode, got, tc.want)
		}
	}
}
