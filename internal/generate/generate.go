// Package generate turns a free-text prompt into an automation event list.
// Generators are untrusted: their output goes through the same applier as
// any other event list, so unknown paths and mistyped values are dropped.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cbegin/andromeda-go/internal/automation"
)

// Request is the input every generator accepts.
type Request struct {
	Prompt     string `json:"prompt"`
	DurationMS uint64 `json:"duration_ms"`
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return errors.New("prompt is empty")
	}
	return nil
}

type Generator interface {
	Generate(ctx context.Context, req Request) ([]automation.Event, error)
}

// pathHelp documents each automatable path with its value type and range.
var pathHelp = map[string]string{
	"oscillator.waveform": "string: sine|triangle|saw|square",
	"oscillator.tune":     "number",
	"oscillator.level":    "number 0..1",
	"oscillator.sync":     "boolean",
	"filter.cutoff":       "number 20..20000",
	"filter.resonance":    "number 0..1",
	"filter.env_amount":   "number 0..1",
	"filter.drive":        "number 0..1",
	"mixer.noise":         "number 0..1",
	"mixer.sub":           "number 0..1",
	"mixer.master":        "number 0..1",
	"global.mono":         "boolean",
	"global.glide":        "number 0..1",
	"global.clip_amount":  "number 0.05..1",
}

// SystemPrompt instructs a text model to answer with a bare JSON event array.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You generate automation events for a synth. Return only a JSON array of events.\n")
	b.WriteString(`Each event: {"time_ms": number, "path": string, "value": number|string|boolean, "curve": "step"|"linear"}.` + "\n")
	b.WriteString("Valid paths:\n")
	for _, p := range automation.Paths() {
		fmt.Fprintf(&b, "- %s (%s)\n", p, pathHelp[p])
	}
	b.WriteString("No extra text, no markdown, JSON only.")
	return b.String()
}

// UserPrompt frames the request for the model.
func UserPrompt(req Request) string {
	return fmt.Sprintf("Duration: %d ms. Prompt: %s", req.DurationMS, req.Prompt)
}

// parseEvents decodes the model's reply. A reply wrapped in a markdown code
// fence is unwrapped first.
func parseEvents(content string) ([]automation.Event, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	events, err := automation.Decode(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("automation json parse failed: %w", err)
	}
	return events, nil
}
