package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chatflow/internal/pkg/logx"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	geminiModel          = "gemini-2.0-flash"

	maxContextLines = 10
)

type geminiClient struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

func newGeminiClient(cfg ServiceConfig) *geminiClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &geminiClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *geminiClient) Complete(ctx context.Context, message string, contextLines []string) (string, error) {
	var b strings.Builder
	b.WriteString("You are a helpful assistant inside a chat room. Keep replies concise and conversational.\n")
	if len(contextLines) > 0 {
		if len(contextLines) > maxContextLines {
			contextLines = contextLines[len(contextLines)-maxContextLines:]
		}
		b.WriteString("Recent conversation:\n")
		for _, line := range contextLines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	b.WriteString("User: ")
	b.WriteString(message)

	return c.generate(ctx, b.String())
}

func (c *geminiClient) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate the following message into %s. Reply with the translation only, no explanation:\n%s",
		targetLanguage, text,
	)
	out, err := c.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *geminiClient) Moderate(ctx context.Context, text string) bool {
	prompt := fmt.Sprintf(
		"Classify the following chat message. Reply with exactly SAFE or UNSAFE:\n%s",
		text,
	)
	out, err := c.generate(ctx, prompt)
	if err != nil {
		logx.Warn("moderation unavailable, treating content as safe", "error", err.Error())
		return true
	}
	return !strings.Contains(strings.ToUpper(out), "UNSAFE")
}

func (c *geminiClient) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, geminiModel, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("call text generation service: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("text generation service error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("text generation service returned status %d", res.StatusCode)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("text generation service returned no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
