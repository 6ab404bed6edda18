package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"text/template"
	"time"

	"github.com/amishk599/upfeed/internal/model"
)

func TestGoogleTranslator_JoinsSegments(t *testing.T) {
	var gotQuery, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotText = r.PostForm.Get("q")
		w.Write([]byte(`[[["Собрать сервис\n\n","Build a service\n\n",null,null,10],["Нужен Go.","Need Go.",null,null,10]],null,"en"]`))
	}))
	defer srv.Close()

	tr := NewGoogleTranslator(srv.URL+"/", "ru", time.Second, srv.Client())
	got, err := tr.Translate(context.Background(), "Build a service\n\nNeed Go.")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Собрать сервис\n\nНужен Go." {
		t.Errorf("Translate = %q", got)
	}
	if gotText != "Build a service\n\nNeed Go." {
		t.Errorf("form q = %q", gotText)
	}
	for _, want := range []string{"sl=auto", "tl=ru", "client=gtx"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %s", gotQuery, want)
		}
	}
}

func TestGoogleTranslator_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewGoogleTranslator(srv.URL, "ru", 0, srv.Client()).Translate(context.Background(), "hello")
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected HTTPError 429, got %v", err)
	}
}

func TestGoogleTranslator_EmptyTextSkipsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	got, err := NewGoogleTranslator(srv.URL, "ru", 0, srv.Client()).Translate(context.Background(), "  ")
	if err != nil || got != "  " {
		t.Fatalf("Translate = %q, %v", got, err)
	}
	if called {
		t.Error("translator should not call the API for blank text")
	}
}

func TestParseGoogleResponse_Malformed(t *testing.T) {
	for _, body := range []string{`not json`, `[]`, `[null]`, `[[]]`} {
		if _, err := parseGoogleResponse([]byte(body)); err == nil {
			t.Errorf("parseGoogleResponse(%q): expected error", body)
		}
	}
}

func chatServer(t *testing.T, status int, content string, gotReq *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotReq != nil {
			if err := json.NewDecoder(r.Body).Decode(gotReq); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(chatResponse{Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: content}}}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var gotReq chatRequest
	srv := chatServer(t, http.StatusOK, "Привет", &gotReq)

	p := NewOpenAIProvider(srv.URL, "key", "gpt-4o-mini", srv.Client())
	got, err := p.Complete(context.Background(), "translate me")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Привет" {
		t.Errorf("Complete = %q", got)
	}
	if gotReq.Model != "gpt-4o-mini" || len(gotReq.Messages) != 2 || gotReq.Messages[1].Content != "translate me" {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestOpenAIProvider_SetsAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(chatResponse{Choices: []chatChoice{{Message: chatMessage{Content: "ok"}}}})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "my-secret-key", "m", srv.Client())
	_, _ = p.Complete(context.Background(), "hello")

	if gotAuth != "Bearer my-secret-key" {
		t.Errorf("Authorization header = %q, want %q", gotAuth, "Bearer my-secret-key")
	}
}

func TestOpenAIProvider_HTTPError(t *testing.T) {
	srv := chatServer(t, http.StatusInternalServerError, "", nil)

	_, err := NewOpenAIProvider(srv.URL, "key", "m", srv.Client()).Complete(context.Background(), "x")
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected HTTPError 500, got %v", err)
	}
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	if _, err := NewOpenAIProvider(srv.URL, "key", "m", srv.Client()).Complete(context.Background(), "x"); err == nil {
		t.Fatal("expected error when LLM returns no choices")
	}
}

// promptRecorder is a stub LLMProvider that records the rendered prompt.
type promptRecorder struct {
	prompt   string
	response string
	err      error
}

func (p *promptRecorder) Complete(_ context.Context, prompt string) (string, error) {
	p.prompt = prompt
	return p.response, p.err
}

func TestLLMTranslator_RendersPrompt(t *testing.T) {
	rec := &promptRecorder{response: "  Привет мир \n"}
	tr := NewLLMTranslator(rec, TranslateTemplate, "ru", time.Second)

	got, err := tr.Translate(context.Background(), "Hello world")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Привет мир" {
		t.Errorf("Translate = %q", got)
	}
	if !strings.Contains(rec.prompt, "into Russian") || !strings.Contains(rec.prompt, "Hello world") {
		t.Errorf("prompt = %q", rec.prompt)
	}
}

func TestLLMTranslator_ProviderError(t *testing.T) {
	tmpl := template.Must(template.New("t").Parse("{{.Language}}: {{.Text}}"))
	tr := NewLLMTranslator(&promptRecorder{err: errors.New("network error")}, tmpl, "de", 0)

	if _, err := tr.Translate(context.Background(), "Hello"); err == nil {
		t.Fatal("expected error from provider failure")
	}
}

func TestNopTranslator(t *testing.T) {
	got, err := NewNopTranslator().Translate(context.Background(), "unchanged")
	if err != nil || got != "unchanged" {
		t.Fatalf("Translate = %q, %v", got, err)
	}
}
