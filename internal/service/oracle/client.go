package oracle

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/tidwall/gjson"
)

const personaPrompt = "You are the Book of Answers. Reply in %s with a short, cryptic, philosophical answer of no more than 30 characters."

var errMalformedResponse = errors.New("malformed completion response")

type Config struct {
	APIURL   string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

type Client struct {
	client *http.Client
	config Config
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		client: &http.Client{
			Transport: &AuthTransport{
				APIKey: cfg.APIKey,
				Base:   http.DefaultTransport,
			},
			Timeout: cfg.Timeout,
		},
		config: cfg,
	}
}

// AuthTransport adds Bearer auth and content negotiation headers
type AuthTransport struct {
	APIKey string
	Base   http.RoundTripper
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br, gzip")
	return t.Base.RoundTrip(req)
}

// Ask sends question to the chat-completion endpoint. It never retries; every failure is
// reported through the returned Result.
func (c *Client) Ask(ctx context.Context, question string) Result {
	payload, err := json.Marshal(ChatRequest{
		Model: c.config.Model,
		Messages: []ChatMessage{
			{Role: "system", Content: fmt.Sprintf(personaPrompt, c.config.Language)},
			{Role: "user", Content: question},
		},
		Stream: false,
	})
	if err != nil {
		return Result{Kind: TransportError, Err: err}
	}

	url := strings.TrimRight(c.config.APIURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{Kind: TransportError, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{Kind: TransportError, Err: err}
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return Result{Kind: TransportError, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return Result{
			Kind:       UpstreamError,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body)),
		}
	}

	if !gjson.ValidBytes(body) {
		return Result{Kind: TransportError, StatusCode: resp.StatusCode, Err: errMalformedResponse}
	}
	content := gjson.GetBytes(body, "choices.0.message.content")
	if content.Type != gjson.String {
		return Result{Kind: TransportError, StatusCode: resp.StatusCode, Err: errMalformedResponse}
	}

	return Result{Kind: Success, Text: content.String(), StatusCode: resp.StatusCode}
}

func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(r)
}
