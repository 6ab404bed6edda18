package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amishk599/upfeed/internal/model"
)

// GoogleTranslator uses the public Google Translate web endpoint with source
// language auto-detection.
type GoogleTranslator struct {
	baseURL    string
	target     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewGoogleTranslator creates a translator into target.
func NewGoogleTranslator(baseURL, target string, timeout time.Duration, httpClient *http.Client) *GoogleTranslator {
	return &GoogleTranslator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		target:     target,
		timeout:    timeout,
		httpClient: httpClient,
	}
}

// Translate sends text in one request and joins the translated segments.
func (g *GoogleTranslator) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "auto")
	params.Set("tl", g.target)
	params.Set("dt", "t")
	endpoint := g.baseURL + "/translate_a/single?" + params.Encode()

	form := url.Values{}
	form.Set("q", text)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &model.HTTPError{StatusCode: resp.StatusCode, Err: fmt.Errorf("google translate")}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read translate response: %w", err)
	}
	return parseGoogleResponse(body)
}

// parseGoogleResponse extracts the translated segments from the nested array
// response: [[["translated","original",...], ...], ...].
func parseGoogleResponse(body []byte) (string, error) {
	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("parse translate response: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("parse translate response: empty")
	}
	segments, ok := raw[0].([]any)
	if !ok {
		return "", fmt.Errorf("parse translate response: unexpected shape")
	}

	var sb strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			sb.WriteString(s)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("parse translate response: no segments")
	}
	return sb.String(), nil
}
