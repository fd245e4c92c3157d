// Package generator talks to an OpenAI-compatible chat completions endpoint
// to propose tasks for a child. Every result is untrusted candidate data.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"familyquest/internal/models"
)

var (
	ErrUnavailable     = errors.New("task generator unavailable")
	ErrInvalidResponse = errors.New("invalid generator response")
)

const (
	defaultTimeout = 30 * time.Second
	defaultModel   = "gpt-4o-mini"
	completionPath = "/v1/chat/completions"
	maxQuestSize   = 5
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration

	// When ClientID is set, requests carry an OAuth2 client-credentials
	// token instead of the static API key.
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scope        string
}

// ChildProfile is what the generator is told about the child.
type ChildProfile struct {
	Name      string
	Age       int
	Interests []string
}

// Request asks for one task. Empty Category lets the generator choose.
type Request struct {
	Profile    ChildProfile
	Category   string
	Difficulty models.Difficulty
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("generator base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	httpClient := &http.Client{}
	if strings.TrimSpace(cfg.ClientID) != "" {
		if strings.TrimSpace(cfg.TokenURL) == "" {
			return nil, errors.New("generator token url is required with client credentials")
		}
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		if scope := strings.TrimSpace(cfg.Scope); scope != "" {
			cc.Scopes = strings.Fields(scope)
		}
		httpClient = cc.Client(context.Background())
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      model,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
	}, nil
}

// SuggestTask makes a single bounded call and returns the parsed proposal.
// Transport failures and timeouts are reported as ErrUnavailable, unusable
// output as ErrInvalidResponse.
func (c *Client) SuggestTask(ctx context.Context, req Request) (models.TaskProposal, error) {
	if req.Category == "" {
		req.Category = PickCategory(req.Profile.Interests)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.doJSON(ctx, completionPath, c.buildBody(taskPrompt(req)))
	if err != nil {
		return models.TaskProposal{}, err
	}
	content, err := extractAssistantContent(raw)
	if err != nil {
		return models.TaskProposal{}, err
	}
	proposal, err := parseProposal(extractJSONPayload(content))
	if err != nil {
		return models.TaskProposal{}, err
	}
	if proposal.Category == "" {
		proposal.Category = req.Category
	}
	return proposal, nil
}

// SuggestQuest asks for a small set of varied tasks in one call.
func (c *Client) SuggestQuest(ctx context.Context, profile ChildProfile, count int) ([]models.TaskProposal, error) {
	if count <= 0 {
		count = 3
	}
	if count > maxQuestSize {
		count = maxQuestSize
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.doJSON(ctx, completionPath, c.buildBody(questPrompt(profile, count)))
	if err != nil {
		return nil, err
	}
	content, err := extractAssistantContent(raw)
	if err != nil {
		return nil, err
	}
	return parseProposalList(extractJSONArray(content), count)
}

func (c *Client) buildBody(userPrompt string) map[string]any {
	return map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature": 0.8,
	}
}

func (c *Client) doJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, resp.StatusCode, truncate(strings.TrimSpace(string(respBody)), 200))
	}
	return respBody, nil
}

func extractAssistantContent(raw []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrInvalidResponse
	}
	switch v := resp.Choices[0].Message.Content.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := m["text"].(string); ok {
				parts = append(parts, text)
			}
		}
		if len(parts) == 0 {
			return "", ErrInvalidResponse
		}
		return strings.TrimSpace(strings.Join(parts, "\n")), nil
	default:
		return "", ErrInvalidResponse
	}
}

func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}

func extractJSONPayload(content string) string {
	trimmed := stripFences(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end >= start {
		return trimmed[start : end+1]
	}
	return trimmed
}

func extractJSONArray(content string) string {
	trimmed := stripFences(content)
	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start >= 0 && end >= start {
		return trimmed[start : end+1]
	}
	return trimmed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
