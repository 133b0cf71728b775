package openrouter

import (
	"strconv"
	"strings"
)

// ParseVerdict parses the APPLIES/CONFIDENCE/REASONING response format.
// Unparseable confidence falls back to 50; a response with no APPLIES line
// is treated as not applicable.
func ParseVerdict(text string) Verdict {
	v := Verdict{Confidence: 50}
	lines := strings.Split(strings.TrimSpace(text), "\n")
	appliesSeen := false
	for _, line := range lines {
		upper := strings.ToUpper(line)
		switch {
		case strings.Contains(upper, "APPLIES:") && !appliesSeen:
			v.Applies = strings.Contains(strings.ToLower(line), "yes")
			appliesSeen = true
		case strings.Contains(upper, "CONFIDENCE:"):
			if n, ok := extractInt(line); ok {
				v.Confidence = clamp(n, 0, 100)
			}
		case strings.Contains(upper, "REASONING:"):
			v.Reasoning = afterColon(line)
		}
	}
	if !appliesSeen && len(lines) > 0 {
		v.Applies = strings.Contains(strings.ToLower(lines[0]), "yes")
	}
	return v
}

// ParseCompleteness parses the COMPLETE/MISSING/REASONING response format.
// An absent or unparseable COMPLETE line reads as not complete.
func ParseCompleteness(text string) Completeness {
	var c Completeness
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		upper := strings.ToUpper(line)
		switch {
		case strings.Contains(upper, "COMPLETE:"):
			c.Complete = strings.Contains(strings.ToLower(line), "yes")
		case strings.Contains(upper, "MISSING:"):
			raw := afterColon(line)
			if raw != "" && !strings.EqualFold(raw, "none") {
				for _, item := range strings.Split(raw, ",") {
					if item = strings.TrimSpace(item); item != "" {
						c.Missing = append(c.Missing, item)
					}
				}
			}
		case strings.Contains(upper, "REASONING:"):
			c.Reasoning = afterColon(line)
		}
	}
	return c
}

// StripLabel removes a leading label like "QUESTION:" that models sometimes
// echo back despite instructions.
func StripLabel(text, label string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(strings.ToUpper(text), strings.ToUpper(label)) {
		text = strings.TrimSpace(text[len(label):])
	}
	return text
}

func afterColon(line string) string {
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}
	return ""
}

func extractInt(line string) (int, bool) {
	var digits strings.Builder
	for _, r := range line {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
