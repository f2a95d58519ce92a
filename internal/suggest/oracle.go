// Package suggest wraps the external text-suggestion engine. The
// engine is consulted with a bounded timeout when a ticket is created;
// any failure falls back to a static message so ticket creation never
// blocks on it.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/spec-kit/campus-helpdesk/internal/config"
	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// Suggestion is the oracle's answer: free-text advice plus a guessed
// department. Department may be empty when the guess is not one of the
// known units.
type Suggestion struct {
	Suggestion string            `json:"suggestion"`
	Department domain.Department `json:"department"`
}

// Fallback is recorded on the ticket when the oracle is unavailable.
// The submitter-chosen department stands in that case.
var Fallback = Suggestion{
	Suggestion: "Your query has been received. A staff member will assist you shortly.",
}

// Oracle produces a suggestion for a ticket description.
type Oracle interface {
	Classify(ctx context.Context, description string) (Suggestion, error)
}

// HTTPOracle talks to an OpenAI-compatible chat completion endpoint.
type HTTPOracle struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewHTTPOracle builds the client with the configured timeout.
func NewHTTPOracle(cfg config.OracleConfig) *HTTPOracle {
	return &HTTPOracle{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client:   &http.Client{Timeout: cfg.Timeout()},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "You are a helpful college helpdesk assistant. Always respond with valid JSON only."

func userPrompt(description string) string {
	units := make([]string, 0, len(domain.Departments()))
	for _, d := range domain.Departments() {
		units = append(units, string(d))
	}
	return fmt.Sprintf(`A student reports this issue:
%q

Task:
1. Suggest a clear, practical solution for the student (2-4 sentences).
2. Choose the most appropriate department from: %s.

Respond ONLY in JSON format:
{"suggestion": "your suggestion here", "department": "one of the above"}`,
		description, strings.Join(units, ", "))
}

// Classify sends the description to the engine and parses its JSON
// answer. The caller's context bounds the call in addition to the
// client timeout.
func (o *HTTPOracle) Classify(ctx context.Context, description string) (Suggestion, error) {
	payload, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(description)},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return Suggestion{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Suggestion{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return Suggestion{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Suggestion{}, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Suggestion{}, err
	}
	if len(parsed.Choices) == 0 {
		return Suggestion{}, errors.New("oracle returned no choices")
	}
	return parseAnswer(parsed.Choices[0].Message.Content)
}

var fenceRe = regexp.MustCompile("```(?:json)?")

// parseAnswer extracts the JSON object from the model's reply, which
// may be wrapped in markdown fences or prose.
func parseAnswer(text string) (Suggestion, error) {
	text = fenceRe.ReplaceAllString(text, "")
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Suggestion{}, errors.New("oracle reply contains no JSON object")
	}

	var out Suggestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return Suggestion{}, err
	}
	if strings.TrimSpace(out.Suggestion) == "" {
		return Suggestion{}, errors.New("oracle reply missing suggestion")
	}
	if !out.Department.Valid() {
		out.Department = ""
	}
	return out, nil
}
