package openrouter

import (
	"reflect"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Verdict
	}{
		{
			name: "applies with confidence",
			text: "APPLIES: yes\nCONFIDENCE: 85\nREASONING: Mains-powered device above 50V AC.",
			want: Verdict{Applies: true, Confidence: 85, Reasoning: "Mains-powered device above 50V AC."},
		},
		{
			name: "does not apply",
			text: "APPLIES: no\nCONFIDENCE: 90\nREASONING: Battery-only device.",
			want: Verdict{Applies: false, Confidence: 90, Reasoning: "Battery-only device."},
		},
		{
			name: "missing confidence defaults to 50",
			text: "APPLIES: yes\nREASONING: Probably in scope.",
			want: Verdict{Applies: true, Confidence: 50, Reasoning: "Probably in scope."},
		},
		{
			name: "confidence clamped to 100",
			text: "APPLIES: yes\nCONFIDENCE: 850\nREASONING: x",
			want: Verdict{Applies: true, Confidence: 100, Reasoning: "x"},
		},
		{
			name: "lowercase labels",
			text: "applies: Yes\nconfidence: 72\nreasoning: matches criteria",
			want: Verdict{Applies: true, Confidence: 72, Reasoning: "matches criteria"},
		},
		{
			name: "no applies line falls back to first line",
			text: "Yes, this norm covers the product.\nCONFIDENCE: 60",
			want: Verdict{Applies: true, Confidence: 60},
		},
		{
			name: "empty response",
			text: "",
			want: Verdict{Confidence: 50},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseVerdict(tt.text)
			if got != tt.want {
				t.Errorf("ParseVerdict() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseCompleteness(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Completeness
	}{
		{
			name: "complete",
			text: "COMPLETE: yes\nMISSING: none\nREASONING: All essentials covered.",
			want: Completeness{Complete: true, Reasoning: "All essentials covered."},
		},
		{
			name: "incomplete with missing items",
			text: "COMPLETE: no\nMISSING: voltage, wireless features\nREASONING: Power specs unclear.",
			want: Completeness{Complete: false, Missing: []string{"voltage", "wireless features"}, Reasoning: "Power specs unclear."},
		},
		{
			name: "missing line absent",
			text: "COMPLETE: no\nREASONING: Too vague.",
			want: Completeness{Complete: false, Reasoning: "Too vague."},
		},
		{
			name: "empty response reads incomplete",
			text: "",
			want: Completeness{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCompleteness(tt.text)
			if got.Complete != tt.want.Complete || got.Reasoning != tt.want.Reasoning {
				t.Errorf("ParseCompleteness() = %+v, want %+v", got, tt.want)
			}
			if !reflect.DeepEqual(got.Missing, tt.want.Missing) {
				t.Errorf("Missing = %v, want %v", got.Missing, tt.want.Missing)
			}
		})
	}
}

func TestStripLabel(t *testing.T) {
	if got := StripLabel("QUESTION: Is it battery powered?", "QUESTION:"); got != "Is it battery powered?" {
		t.Errorf("StripLabel = %q", got)
	}
	if got := StripLabel("Is it battery powered?", "QUESTION:"); got != "Is it battery powered?" {
		t.Errorf("StripLabel without label = %q", got)
	}
}
