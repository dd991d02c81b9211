package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeBackend struct {
	calls []string
	err   error
}

func (f *fakeBackend) translate(_ context.Context, text, src, dst string) (string, error) {
	f.calls = append(f.calls, src+">"+dst)
	if f.err != nil {
		return "", f.err
	}
	return " [" + dst + "] " + text + " ", nil
}

func TestTranslatorDirections(t *testing.T) {
	tests := []struct {
		text, src, dst string
		want           string
		call           string
	}{
		{"привіт", "uk", "en", "[en] привіт", "uk>en"},
		{"hello", "en", "uk", "[uk] hello", "en>uk"},
		{"привіт", "uk-UA", "EN", "[en] привіт", "uk>en"},
		{"bonjour", "fr", "en", "bonjour", ""},
		{"hello", "en", "en", "hello", ""},
		{"   ", "uk", "en", "", ""},
	}

	for _, tt := range tests {
		b := &fakeBackend{}
		got, err := New(b).Translate(context.Background(), tt.text, tt.src, tt.dst)
		if err != nil {
			t.Fatalf("%s->%s: %v", tt.src, tt.dst, err)
		}
		if got != tt.want {
			t.Errorf("%s->%s: got %q, want %q", tt.src, tt.dst, got, tt.want)
		}

		switch {
		case tt.call == "" && len(b.calls) != 0:
			t.Errorf("%s->%s: backend should not be called, got %v", tt.src, tt.dst, b.calls)
		case tt.call != "" && (len(b.calls) != 1 || b.calls[0] != tt.call):
			t.Errorf("%s->%s: calls = %v, want [%s]", tt.src, tt.dst, b.calls, tt.call)
		}
	}
}

func TestTranslatorError(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(&fakeBackend{err: boom}).Translate(context.Background(), "привіт", "uk", "en")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestLibreTranslate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["q"] != "Привіт" || body["source"] != "uk" || body["target"] != "en" || body["api_key"] != "k" {
			t.Errorf("body = %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"translatedText":"Hello"}`))
	}))
	defer ts.Close()

	tr := New(NewLibreTranslate(ts.URL+"/", "k", ts.Client()))
	got, err := tr.Translate(context.Background(), "Привіт", "uk", "en")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hello" {
		t.Fatalf("got %q", got)
	}
}

func TestLibreTranslateError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"uk is not supported"}`))
	}))
	defer ts.Close()

	_, err := New(NewLibreTranslate(ts.URL, "", ts.Client())).Translate(context.Background(), "Привіт", "uk", "en")
	if err == nil || !strings.Contains(err.Error(), "uk is not supported") {
		t.Fatalf("err = %v", err)
	}
}

type fakeGenerator struct {
	prompt string
	reply  string
}

func (f *fakeGenerator) Generate(_ context.Context, _, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, nil
}

func TestModelTranslator(t *testing.T) {
	gen := &fakeGenerator{reply: "<think>simple greeting</think>\nПривіт!"}

	got, err := New(NewModel(gen, "qwen3:8b")).Translate(context.Background(), "Hello!", "en", "uk")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Привіт!" {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(gen.prompt, "from English to Ukrainian") || !strings.HasSuffix(gen.prompt, "Hello!") {
		t.Fatalf("prompt = %q", gen.prompt)
	}
}
