package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cbegin/andromeda-go/internal/automation"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultBaseURL = "https://api.openai.com/v1"
	temperature    = 0.3
)

var ErrMissingAPIKey = errors.New("OPENAI_API_KEY not set")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// OpenAI talks to an OpenAI-compatible chat completions endpoint. Identical
// requests in flight at the same time share one HTTP round trip.
type OpenAI struct {
	base   string
	model  string
	token  string
	client *http.Client
	logger *slog.Logger
	sf     singleflight.Group
}

// NewOpenAIFromEnv reads OPENAI_API_KEY, OPENAI_MODEL and OPENAI_BASE_URL.
func NewOpenAIFromEnv(logger *slog.Logger) (*OpenAI, error) {
	tok := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if tok == "" {
		return nil, ErrMissingAPIKey
	}
	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = DefaultModel
	}
	base := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if base == "" {
		base = DefaultBaseURL
	}
	return NewOpenAI(base, model, tok, logger), nil
}

func NewOpenAI(baseURL, model, token string, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &OpenAI{
		base:   strings.TrimRight(baseURL, "/"),
		model:  model,
		token:  strings.TrimSpace(token),
		client: &http.Client{Transport: tr, Timeout: 60 * time.Second},
		logger: logger,
	}
}

func (o *OpenAI) Generate(ctx context.Context, req Request) ([]automation.Event, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%d\x00%s", req.DurationMS, req.Prompt)
	// The shared round trip outlives any one caller; it is bounded by the
	// client timeout. Each caller only waits as long as its own ctx allows.
	detached := context.WithoutCancel(ctx)
	ch := o.sf.DoChan(key, func() (any, error) {
		return o.complete(detached, req)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("openai request failed: %w", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		o.logger.Debug("automation request coalesced", "prompt", req.Prompt)
	}
	// Callers may sort or modify the slice; hand each its own copy.
	events := res.Val.([]automation.Event)
	out := make([]automation.Event, len(events))
	copy(out, events)
	return out, nil
}

func (o *OpenAI) complete(ctx context.Context, req Request) ([]automation.Event, error) {
	payload := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: UserPrompt(req)},
		},
		Temperature: temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.token)

	start := time.Now()
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, rerr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if rerr != nil {
			msg = []byte("unknown error")
		}
		return nil, fmt.Errorf("openai error: %s - %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("openai response parse failed: %w", err)
	}
	content := ""
	if len(parsed.Choices) > 0 {
		content = parsed.Choices[0].Message.Content
	}
	events, err := parseEvents(content)
	if err != nil {
		return nil, err
	}
	o.logger.Info("automation generated", "model", o.model, "events", len(events), "elapsed", time.Since(start))
	return events, nil
}
