package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"voxdialog/pkg/audioconv"
)

type RemoteConfig struct {
	BaseURL  string // e.g. http://localhost:8000/v1
	APIKey   string // sent as Bearer when set
	Model    string // default "whisper-1"
	Language string // empty or "auto" lets the server detect
}

// Remote calls an OpenAI compatible /audio/transcriptions endpoint
// (faster-whisper-server, whisper.cpp server, OpenAI).
type Remote struct {
	cfg    RemoteConfig
	client *http.Client
}

func NewRemote(cfg RemoteConfig, client *http.Client) *Remote {
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{cfg: cfg, client: client}
}

type verboseTranscription struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Recognize expects mono float32 samples at SampleRate.
func (r *Remote) Recognize(ctx context.Context, pcm []float32) (Result, error) {
	if len(pcm) == 0 {
		return Result{}, nil
	}

	path, err := audioconv.WriteTempWAV("", pcm, SampleRate)
	if err != nil {
		return Result{}, fmt.Errorf("remote stt: encode wav: %w", err)
	}
	defer os.Remove(path)

	body, contentType, err := r.form(path)
	if err != nil {
		return Result{}, fmt.Errorf("remote stt: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/audio/transcriptions", body)
	if err != nil {
		return Result{}, fmt.Errorf("remote stt: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("remote stt: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, fmt.Errorf("remote stt: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var decoded verboseTranscription
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("remote stt: decode response: %w", err)
	}

	res := Result{Language: LanguageCode(decoded.Language)}
	for _, s := range decoded.Segments {
		res.Segments = append(res.Segments, Segment{Text: s.Text, StartSec: s.Start, EndSec: s.End})
	}
	res.Text = strings.TrimSpace(decoded.Text)
	if res.Text == "" {
		res.Text = joinSegments(res.Segments)
	}
	return res, nil
}

func (r *Remote) form(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}

	fields := map[string]string{
		"model":           r.cfg.Model,
		"response_format": "verbose_json",
	}
	if l := r.cfg.Language; l != "" && l != "auto" {
		fields["language"] = l
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
