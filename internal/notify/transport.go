package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
)

// maxErrorBody caps how much of a failed response is kept for logging.
const maxErrorBody = 4 << 10

// Transport delivers one payload to an endpoint. A non-2xx status is not an
// error at this level; err is reserved for requests that produced no response.
type Transport interface {
	Post(ctx context.Context, endpoint string, payload []byte) (status int, body string, err error)
}

// HTTPTransport posts JSON over HTTP.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport returns a transport using a dedicated client.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{Client: &http.Client{}}
}

// Post implements Transport.
func (t *HTTPTransport) Post(ctx context.Context, endpoint string, payload []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		// *url.Error repeats the endpoint, which contains the bot token.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return 0, "", urlErr.Err
		}
		return 0, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return resp.StatusCode, string(body), nil
}
