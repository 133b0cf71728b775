package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/normscout/normscout-backend/internal/domain"
	"github.com/normscout/normscout-backend/internal/observability"
	"github.com/normscout/normscout-backend/internal/pkg/httpx"
	"github.com/normscout/normscout-backend/internal/platform/logger"
)

// Verdict is the parsed outcome of a single norm applicability check.
type Verdict struct {
	Applies    bool
	Confidence int
	Reasoning  string
}

// Completeness is the parsed outcome of a conversation completeness check.
type Completeness struct {
	Complete  bool
	Missing   []string
	Reasoning string
}

// Client is the LLM client used by the conversation and matching services.
// All methods block until the model answers or ctx is done.
type Client interface {
	// CheckNorm asks whether one norm applies to the product description.
	CheckNorm(ctx context.Context, productDescription string, norm domain.Norm) (Verdict, error)

	// AnalyzeCompleteness judges whether the conversation carries enough
	// technical detail for accurate norm matching.
	AnalyzeCompleteness(ctx context.Context, history []domain.ConversationTurn) (Completeness, error)

	// GenerateFollowup produces one conversational question targeting the
	// most important missing detail.
	GenerateFollowup(ctx context.Context, history []domain.ConversationTurn, missing []string) (string, error)

	// Summarize condenses the conversation into a technical product
	// description suitable for compliance assessment.
	Summarize(ctx context.Context, history []domain.ConversationTurn) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENROUTER_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("OPENROUTER_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("OPENROUTER_MODEL"))
	if model == "" {
		model = "anthropic/claude-3.5-sonnet"
	}

	maxRetries := 4
	if raw := strings.TrimSpace(os.Getenv("OPENROUTER_MAX_RETRIES")); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &maxRetries); err != nil || maxRetries < 0 {
			maxRetries = 4
		}
	}

	timeout := 60 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENROUTER_TIMEOUT")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			timeout = d
		}
	}

	return &client{
		log:        log,
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openRouterHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openRouterHTTPError) Error() string {
	return fmt.Sprintf("openrouter http %d: %s", e.StatusCode, e.Body)
}

func (e *openRouterHTTPError) HTTPStatusCode() int { return e.StatusCode }

func (c *client) CheckNorm(ctx context.Context, productDescription string, norm domain.Norm) (Verdict, error) {
	text, err := c.complete(ctx, "norm_check", normCheckPrompt(productDescription, norm), 0.3, 200)
	if err != nil {
		return Verdict{}, err
	}
	return ParseVerdict(text), nil
}

func (c *client) AnalyzeCompleteness(ctx context.Context, history []domain.ConversationTurn) (Completeness, error) {
	text, err := c.complete(ctx, "completeness", completenessPrompt(history), 0.3, 300)
	if err != nil {
		return Completeness{}, err
	}
	return ParseCompleteness(text), nil
}

func (c *client) GenerateFollowup(ctx context.Context, history []domain.ConversationTurn, missing []string) (string, error) {
	text, err := c.complete(ctx, "followup", followupPrompt(history, missing), 0.7, 150)
	if err != nil {
		return "", err
	}
	return StripLabel(text, "QUESTION:"), nil
}

func (c *client) Summarize(ctx context.Context, history []domain.ConversationTurn) (string, error) {
	text, err := c.complete(ctx, "summary", summaryPrompt(history), 0.5, 500)
	if err != nil {
		return "", err
	}
	return StripLabel(text, "PRODUCT DESCRIPTION:"), nil
}

// complete runs one chat completion with retry on transient failures and
// returns the assistant message content.
func (c *client) complete(ctx context.Context, task, prompt string, temperature float64, maxTokens int) (string, error) {
	body := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	backoff := 1 * time.Second
	start := time.Now()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, body)
		if err == nil {
			var parsed chatResponse
			if uErr := json.Unmarshal(raw, &parsed); uErr != nil {
				return "", fmt.Errorf("openrouter decode error: %w; raw=%s", uErr, string(raw))
			}
			if len(parsed.Choices) == 0 {
				return "", fmt.Errorf("openrouter returned no choices")
			}
			if metrics := observability.Current(); metrics != nil {
				metrics.ObserveLLMRequest(c.model, task, statusFromResp(resp), time.Since(start),
					parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens)
			}
			return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			if metrics := observability.Current(); metrics != nil {
				metrics.ObserveLLMRequest(c.model, task, statusFromRespErr(resp, err), time.Since(start), 0, 0)
			}
			return "", err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("openrouter request retrying",
			"task", task,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}

	return "", fmt.Errorf("unreachable retry loop")
}

func (c *client) doOnce(ctx context.Context, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openRouterHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func statusFromResp(resp *http.Response) string {
	if resp == nil {
		return "0"
	}
	return fmt.Sprintf("%d", resp.StatusCode)
}

func statusFromRespErr(resp *http.Response, err error) string {
	if resp != nil {
		return fmt.Sprintf("%d", resp.StatusCode)
	}
	if err != nil {
		return "error"
	}
	return "0"
}
