package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coursehub-api/coursehub/internal/core"
	"github.com/coursehub-api/coursehub/internal/core/errs"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// noResponsePlaceholder is returned when the provider answers 200 with no
// candidate text.
const noResponsePlaceholder = "(No response)"

// GeminiLLM calls the generateContent REST endpoint directly. The plain HTTP
// client keeps the API version in our hands, which the fallback ladder below
// depends on: a 404 retries once on the alternate API version, then once more
// with any "-latest" suffix stripped from the model name.
type GeminiLLM struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	modelName  string
	apiVersion string
}

func NewGeminiLLM(apiKey, modelName, apiVersion string) *GeminiLLM {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	if apiVersion == "" {
		apiVersion = "v1"
	}
	return &GeminiLLM{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		modelName:  modelName,
		apiVersion: apiVersion,
	}
}

type genPart struct {
	Text string `json:"text"`
}

type genContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []genPart `json:"parts"`
}

type genRequest struct {
	Contents []genContent `json:"contents"`
}

type genCandidate struct {
	Content    *genContent `json:"content"`
	OutputText string      `json:"output_text"`
}

type genResponse struct {
	Candidates []genCandidate `json:"candidates"`
}

// Generate sends the composed prompt and returns the first candidate's first
// text part, falling back to the candidate's output_text and then to a
// literal placeholder when the provider returns no content.
func (g *GeminiLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("gemini API key not configured")
	}

	body, err := json.Marshal(genRequest{
		Contents: []genContent{
			{Role: "user", Parts: []genPart{{Text: systemPrompt + "\n\n" + userPrompt}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	status, respBody, err := g.call(ctx, g.modelName, g.apiVersion, body)
	if err != nil {
		return "", err
	}

	// Fallbacks for common 404 cases: switch API version, drop -latest suffix.
	if status == http.StatusNotFound {
		toggled := toggleVersion(g.apiVersion)
		status, respBody, err = g.call(ctx, g.modelName, toggled, body)
		if err != nil {
			return "", err
		}
		if status == http.StatusNotFound {
			baseModel := strings.TrimSuffix(g.modelName, "-latest")
			if baseModel != g.modelName {
				status, respBody, err = g.call(ctx, baseModel, toggled, body)
				if err != nil {
					return "", err
				}
			}
		}
	}

	if status < 200 || status > 299 {
		return "", errs.Upstream(status, string(respBody))
	}

	var parsed genResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	text := ""
	if len(parsed.Candidates) > 0 {
		cand := parsed.Candidates[0]
		if cand.Content != nil && len(cand.Content.Parts) > 0 {
			text = cand.Content.Parts[0].Text
		}
		if text == "" {
			text = cand.OutputText
		}
	}
	if text == "" {
		return noResponsePlaceholder, nil
	}
	return text, nil
}

func (g *GeminiLLM) call(ctx context.Context, model, version string, body []byte) (int, []byte, error) {
	url := fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s", g.baseURL, version, model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read gemini response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func toggleVersion(v string) string {
	if v == "v1beta" {
		return "v1"
	}
	return "v1beta"
}

var _ core.LLMProvider = (*GeminiLLM)(nil)
