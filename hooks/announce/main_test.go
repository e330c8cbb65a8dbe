package main

import "testing"

func TestPhraseFor(t *testing.T) {
	tests := []struct {
		name   string
		ev     Event
		cfg    Config
		want   string
		wantOK bool
	}{
		{"rep", Event{Type: "rep", Report: Report{RepCount: 3}}, Config{}, "3", true},
		{"skipped rep", Event{Type: "rep", Report: Report{RepCount: 3}}, Config{Every: 5}, "", false},
		{"fifth rep", Event{Type: "rep", Report: Report{RepCount: 10}}, Config{Every: 5}, "10", true},
		{"issues", Event{Type: "form_issue", Report: Report{Issues: []string{"Knees too far forward", "Lean back"}}}, Config{}, "Knees too far forward. Lean back", true},
		{"bare issue", Event{Type: "form_issue"}, Config{}, "Check your form", true},
		{"no pose", Event{Type: "no_pose"}, Config{}, "I can't see you", true},
		{"unknown", Event{Type: "other"}, Config{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := phraseFor(tt.ev, tt.cfg)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("phraseFor() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
