package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/lzyats/cloud-message-go/pkg/cloudmsg"
)

// HTTPSender posts serialized payloads to the legacy GCM/FCM HTTP endpoint
// configured for each cloud type. It is a pure I/O boundary: one synchronous
// POST per call, no retry, no response interpretation.
type HTTPSender struct {
	cfg        cloudmsg.Settings
	httpClient *http.Client
}

func New(cfg cloudmsg.Settings) *HTTPSender {
	return &HTTPSender{
		cfg: cfg.WithDefaults(),
		// Per-request deadlines come from the per-cloud timeout setting.
		httpClient: &http.Client{},
	}
}

// Send posts payload to the endpoint for ct and returns the raw response
// body. The API key is checked before any network I/O; transport-level
// failures (network, timeout, non-2xx) come back as *cloudmsg.TransportError.
func (s *HTTPSender) Send(ctx context.Context, ct cloudmsg.CloudType, payload []byte) (string, error) {
	cs, err := s.cfg.ForCloud(ct)
	if err != nil {
		return "", err
	}
	if cs.APIKey == "" {
		return "", &cloudmsg.ConfigError{Reason: "missing api key for " + string(ct)}
	}

	ctx, cancel := context.WithTimeout(ctx, cs.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cs.PostURL, bytes.NewReader(payload))
	if err != nil {
		return "", &cloudmsg.TransportError{Op: "post", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+cs.APIKey)
	req.Header.Set("Content-Length", strconv.Itoa(len(payload)))
	req.ContentLength = int64(len(payload))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &cloudmsg.TransportError{Op: "post", Err: err}
	}
	defer resp.Body.Close()
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &cloudmsg.TransportError{Op: "read", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &cloudmsg.TransportError{Op: "post", Status: resp.StatusCode, Body: string(bodyBytes)}
	}
	return string(bodyBytes), nil
}
