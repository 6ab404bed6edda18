package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/upfeed/internal/config"
	"github.com/amishk599/upfeed/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>golang job postings | upwork.com</title>
    <link>https://www.upwork.com</link>
    <item>
      <title><![CDATA[Build a Go microservice - Upwork]]></title>
      <link>https://www.upwork.com/jobs/~01abc?source=rss</link>
      <description><![CDATA[We need a gRPC service in Go.<br /><br /><b>Budget</b>: $500
<br /><b>Posted On</b>: January 05, 2024 10:30 UTC<br /><b>Category</b>: Back-End Development<br /><b>Skills</b>:Go,     gRPC,     PostgreSQL
<br /><b>Country</b>: Germany
<br /><a href="https://www.upwork.com/jobs/~01abc?source=rss">click to apply</a>
]]></description>
      <guid>https://www.upwork.com/jobs/~01abc?source=rss</guid>
      <pubDate>Fri, 05 Jan 2024 10:30:00 +0000</pubDate>
    </item>
    <item>
      <title><![CDATA[Fix a React bug - Upwork]]></title>
      <link>https://www.upwork.com/jobs/~02def?source=rss</link>
      <description><![CDATA[Small fix &amp; cleanup.<br /><b>Hourly Range</b>: $15.00-$30.00<br />]]></description>
    </item>
  </channel>
</rss>`

func feedConfig(baseURL string) config.FeedConfig {
	return config.FeedConfig{
		BaseURL:       baseURL,
		Query:         "golang developer",
		SecurityToken: "tok",
		UserUID:       "u1",
		OrgUID:        "o1",
	}
}

func TestBuildURL_FixedParameters(t *testing.T) {
	cfg := feedConfig("https://www.upwork.com/ab/feed/jobs/rss")
	cfg.Params = map[string]string{"sort": "relevance", "budget": "500-"}

	raw, err := BuildURL(cfg)
	if err != nil {
		t.Fatalf("BuildURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse built url: %v", err)
	}
	if u.Host != "www.upwork.com" || u.Path != "/ab/feed/jobs/rss" {
		t.Errorf("url = %s", raw)
	}

	q := u.Query()
	want := map[string]string{
		"q":                "golang developer",
		"securityToken":    "tok",
		"userUid":          "u1",
		"orgUid":           "o1",
		"payment_verified": "1",
		"client_hires":     "1-9,10-",
		"proposals":        "0-4,5-9,10-14",
		"api_params":       "1",
		"sort":             "relevance", // overridden by Params
		"budget":           "500-",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("param %s = %q, want %q", k, got, v)
		}
	}
}

func TestFetchItems_Success(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f, err := NewUpworkFetcher(feedConfig(srv.URL+"/rss"), srv.Client(), discardLogger())
	if err != nil {
		t.Fatalf("NewUpworkFetcher: %v", err)
	}

	items, err := f.FetchItems(context.Background())
	if err != nil {
		t.Fatalf("FetchItems: %v", err)
	}
	if !strings.Contains(gotQuery, "securityToken=tok") {
		t.Errorf("query %q missing securityToken", gotQuery)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.ID != "https://www.upwork.com/jobs/~01abc?source=rss" {
		t.Errorf("ID = %q", first.ID)
	}
	if first.Title != "Build a Go microservice - Upwork" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.PublishedAt == nil || !first.PublishedAt.Equal(time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", first.PublishedAt)
	}
	for _, want := range []string{"We need a gRPC service in Go.", "Budget: $500", "Country: Germany", "click to apply"} {
		if !strings.Contains(first.RawBody, want) {
			t.Errorf("RawBody missing %q:\n%s", want, first.RawBody)
		}
	}
	if strings.Contains(first.RawBody, "<b>") {
		t.Errorf("RawBody still contains markup:\n%s", first.RawBody)
	}

	if !strings.Contains(items[1].RawBody, "Small fix & cleanup.") {
		t.Errorf("entities not decoded: %q", items[1].RawBody)
	}
	if items[1].PublishedAt != nil {
		t.Errorf("second item PublishedAt = %v, want nil", items[1].PublishedAt)
	}
}

func TestFetchItems_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f, err := NewUpworkFetcher(feedConfig(srv.URL), srv.Client(), discardLogger())
	if err != nil {
		t.Fatalf("NewUpworkFetcher: %v", err)
	}

	_, err = f.FetchItems(context.Background())
	var fetchErr *model.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError inside FetchError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests || httpErr.RetryAfter != 7*time.Second {
		t.Errorf("HTTPError = %+v", httpErr)
	}
	if strings.Contains(err.Error(), "tok") {
		t.Errorf("error message leaks the security token: %v", err)
	}
}

func TestFetchItems_ParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a feed"))
	}))
	defer srv.Close()

	f, err := NewUpworkFetcher(feedConfig(srv.URL), srv.Client(), discardLogger())
	if err != nil {
		t.Fatalf("NewUpworkFetcher: %v", err)
	}

	_, err = f.FetchItems(context.Background())
	var parseErr *model.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestFetchItems_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	f, err := NewUpworkFetcher(feedConfig(addr), &http.Client{Timeout: time.Second}, discardLogger())
	if err != nil {
		t.Fatalf("NewUpworkFetcher: %v", err)
	}

	_, err = f.FetchItems(context.Background())
	var fetchErr *model.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if strings.Contains(err.Error(), "securityToken") {
		t.Errorf("error message leaks the request url: %v", err)
	}
}

func TestHTMLToText(t *testing.T) {
	got, err := HTMLToText("Line one<br />Line &quot;two&quot;<br/><b>Budget</b>: $5&nbsp;000<br>&bull; item")
	if err != nil {
		t.Fatalf("HTMLToText: %v", err)
	}
	lines := strings.Split(got, "\n")
	want := []string{"Line one", `Line "two"`, "Budget: $5\u00a0000", "• item"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
