package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestFormat(t *testing.T) {
	results := []Result{
		{Title: "Kyiv weather", URL: "https://w.example/kyiv", Snippet: "+3°C, cloudy"},
		{Title: "Forecast", URL: "https://f.example", Snippet: "Rain later"},
	}

	want := "[1] Kyiv weather\nURL: https://w.example/kyiv\n+3°C, cloudy\n\n[2] Forecast\nURL: https://f.example\nRain later"
	if got := Format(results, 0); got != want {
		t.Fatalf("Format =\n%s\nwant\n%s", got, want)
	}

	if got := Format(nil, 100); got != "" {
		t.Fatalf("Format(nil) = %q", got)
	}
}

func TestFormatTruncatesOnRuneBoundary(t *testing.T) {
	results := []Result{{Title: "Погода", URL: "u", Snippet: strings.Repeat("дощ ", 50)}}

	for _, limit := range []int{10, 11, 37, 100} {
		got := Format(results, limit)
		if len(got) > limit {
			t.Errorf("limit %d: got %d bytes", limit, len(got))
		}
		if !utf8.ValidString(got) {
			t.Errorf("limit %d: invalid utf-8 %q", limit, got)
		}
	}
}

func TestTavilySearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("auth header = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["query"] != "weather Kyiv" || body["max_results"] != float64(2) {
			t.Errorf("body = %v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"title":"T1","url":"https://a.example","content":"S1\n  more"},
			{"title":"T2","url":"https://b.example","content":"S2"},
			{"title":"T3","url":"https://c.example","content":"S3"}]}`))
	}))
	defer ts.Close()

	got, err := NewTavily("key", ts.URL, ts.Client()).Search(context.Background(), " weather Kyiv ", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []Result{
		{Title: "T1", URL: "https://a.example", Snippet: "S1 more"},
		{Title: "T2", URL: "https://b.example", Snippet: "S2"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTavilyErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer ts.Close()

	if _, err := NewTavily("bad", ts.URL, ts.Client()).Search(context.Background(), "q", 3); err == nil {
		t.Fatal("expected status error")
	}
	if _, err := NewTavily("", ts.URL, ts.Client()).Search(context.Background(), "q", 3); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestTavilyTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`{"results":[]}`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewTavily("key", ts.URL, ts.Client()).Search(ctx, "q", 3)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

const ddgPage = `<!DOCTYPE html>
<html><body>
<div class="result results_links result--ad">
  <h2 class="result__title"><a class="result__a" href="https://ads.example">Sponsored</a></h2>
  <a class="result__snippet">Buy now</a>
</div>
<div class="result results_links results_links_deep web-result">
  <div class="links_main links_deep result__body">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fweather.example%2Fkyiv&amp;rut=abc">Weather in <b>Kyiv</b></a>
    </h2>
    <a class="result__snippet" href="#">Currently <b>+3°C</b>,
      cloudy.</a>
  </div>
</div>
<div class="result results_links web-result">
  <h2 class="result__title"><a class="result__a" href="https://news.example/today">Today</a></h2>
</div>
<div class="result web-result">
  <a class="result__snippet">no title here</a>
</div>
</body></html>`

func TestDuckDuckGoSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if q := r.PostForm.Get("q"); q != "weather Kyiv" {
			t.Errorf("q = %q", q)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(ddgPage))
	}))
	defer ts.Close()

	got, err := NewDuckDuckGo(ts.URL, ts.Client()).Search(context.Background(), "weather Kyiv", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	want := []Result{
		{Title: "Weather in Kyiv", URL: "https://weather.example/kyiv", Snippet: "Currently +3°C, cloudy."},
		{Title: "Today", URL: "https://news.example/today"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDuckDuckGoLimitAndBlankQuery(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(ddgPage))
	}))
	defer ts.Close()

	ddg := NewDuckDuckGo(ts.URL, ts.Client())

	got, err := ddg.Search(context.Background(), "   ", 5)
	if err != nil || got != nil || calls != 0 {
		t.Fatalf("blank query: got %v, err %v, calls %d", got, err, calls)
	}

	got, err = ddg.Search(context.Background(), "kyiv", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Weather in Kyiv" {
		t.Fatalf("got %+v", got)
	}
}

func TestResolveLink(t *testing.T) {
	for in, want := range map[string]string{
		"//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example%2Fx%3Fy%3D1&rut=z": "https://a.example/x?y=1",
		"//b.example/page":        "https://b.example/page",
		"https://c.example/plain": "https://c.example/plain",
	} {
		if got := resolveLink(in); got != want {
			t.Errorf("resolveLink(%q) = %q, want %q", in, got, want)
		}
	}
}
