package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// LibreTranslate calls a LibreTranslate compatible /translate endpoint.
type LibreTranslate struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewLibreTranslate(baseURL, apiKey string, httpClient *http.Client) *LibreTranslate {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LibreTranslate{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (l *LibreTranslate) translate(ctx context.Context, text, src, dst string) (string, error) {
	payload := map[string]string{
		"q":      text,
		"source": src,
		"target": dst,
		"format": "text",
	}
	if l.apiKey != "" {
		payload["api_key"] = l.apiKey
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("libretranslate: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("libretranslate: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("libretranslate: request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded struct {
		TranslatedText string `json:"translatedText"`
		Error          string `json:"error"`
	}

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(b, &decoded) == nil && decoded.Error != "" {
			return "", fmt.Errorf("libretranslate: status %d: %s", resp.StatusCode, decoded.Error)
		}
		return "", fmt.Errorf("libretranslate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("libretranslate: decode response: %w", err)
	}
	return decoded.TranslatedText, nil
}
