package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGoogle_ParsesAndLimitsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "k" || q.Get("cx") != "cx" || q.Get("q") != "golang" || q.Get("num") != "5" {
			t.Errorf("Unexpected query %v", q)
		}
		var items []string
		for i := 0; i < 7; i++ {
			items = append(items, fmt.Sprintf(`{"title":"T%d","link":"https://example.com/%d","snippet":"<b>s%d</b>"}`, i, i, i))
		}
		io.WriteString(w, `{"items":[`+strings.Join(items, ",")+`]}`)
	}))
	defer server.Close()

	g := &Google{APIKey: "k", EngineID: "cx", Endpoint: server.URL}
	resp := g.Search(context.Background(), "golang")
	if len(resp.Results) != MaxResults {
		t.Fatalf("Expected %d results, got %d", MaxResults, len(resp.Results))
	}
	if resp.Results[0].Snippet != "s0" {
		t.Errorf("Expected stripped snippet, got %q", resp.Results[0].Snippet)
	}
	if IsErrorResponse(resp) {
		t.Error("Real results flagged as error")
	}
}

func TestGoogle_DegradesWhenMisconfigured(t *testing.T) {
	resp := (&Google{}).Search(context.Background(), "anything")
	if !IsErrorResponse(resp) {
		t.Fatalf("Expected degraded response, got %+v", resp)
	}
	if !strings.Contains(resp.Results[0].Snippet, "GOOGLE_API_KEY") {
		t.Errorf("Expected configuration hint, got %q", resp.Results[0].Snippet)
	}
}

func TestGoogle_DegradesOnUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	resp := (&Google{APIKey: "k", EngineID: "cx", Endpoint: server.URL}).Search(context.Background(), "q")
	if !IsErrorResponse(resp) {
		t.Fatalf("Expected degraded response, got %+v", resp)
	}
}

func TestBrave_ParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "bk" {
			t.Errorf("Missing subscription token")
		}
		io.WriteString(w, `{"web":{"results":[{"title":"<strong>Go</strong>","url":"https://go.dev","description":"The Go language"}]}}`)
	}))
	defer server.Close()

	resp := (&Brave{APIKey: "bk", Endpoint: server.URL}).Search(context.Background(), "go")
	if len(resp.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(resp.Results))
	}
	r := resp.Results[0]
	if r.Title != "Go" || r.Link != "https://go.dev" || r.Snippet != "The Go language" {
		t.Errorf("Unexpected result %+v", r)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	if !IsErrorResponse((&Brave{APIKey: "x"}).Search(context.Background(), "")) {
		t.Error("Expected degraded response for empty query")
	}
}
