package dispatch

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/lzyats/cloud-message-go/pkg/cloudmsg"
	"github.com/lzyats/cloud-message-go/pkg/metrics"
	"github.com/lzyats/cloud-message-go/pkg/registry"
)

// Sender posts a serialized payload to the gateway for one cloud type and
// returns the raw response body (e.g. the HTTP adapter in pkg/transport).
type Sender interface {
	Send(ctx context.Context, ct cloudmsg.CloudType, payload []byte) (string, error)
}

// Service is the dispatch entry point: it chunks recipient lists under the
// per-cloud recipient cap, builds and posts one payload per chunk, and
// reconciles each gateway response against the device registry.
type Service struct {
	cfg    cloudmsg.Settings
	sender Sender
	reg    registry.Registry
	log    *zap.Logger
}

func New(cfg cloudmsg.Settings, sender Sender, reg registry.Registry, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		cfg:    cfg.WithDefaults(),
		sender: sender,
		reg:    reg,
		log:    log,
	}
}

// Send dispatches to a single registration ID. An empty id is a no-op, not
// an error. Bulk callers should prefer SendBulk.
func (s *Service) Send(ctx context.Context, id string, data map[string]any, ct cloudmsg.CloudType, opts cloudmsg.Options) (*cloudmsg.Response, error) {
	if id == "" {
		return nil, nil
	}
	responses, err := s.SendBulk(ctx, []string{id}, data, ct, opts)
	if len(responses) > 0 {
		return responses[0], err
	}
	return nil, err
}

// SendBulk dispatches to ids, splitting them into consecutive chunks of at
// most the configured per-cloud recipient cap. Chunk order equals input
// order and the returned responses follow chunk order, one per chunk.
//
// With no ids and no topic in the To option there is nothing to address, so
// SendBulk returns (nil, nil). A chunk error stops the remaining chunks;
// responses reconciled up to that point (including the errored chunk's, when
// the gateway answered) are still returned.
func (s *Service) SendBulk(ctx context.Context, ids []string, data map[string]any, ct cloudmsg.CloudType, opts cloudmsg.Options) ([]*cloudmsg.Response, error) {
	cs, err := s.cfg.ForCloud(ct)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 && !strings.Contains(opts.To, "/topics/") {
		return nil, nil
	}

	metrics.DispatchRequests.Inc()
	metrics.Recipients.Add(float64(len(ids)))

	var responses []*cloudmsg.Response
	if len(ids) > cs.MaxRecipients {
		for start := 0; start < len(ids); start += cs.MaxRecipients {
			end := start + cs.MaxRecipients
			if end > len(ids) {
				end = len(ids)
			}
			resp, err := s.sendChunk(ctx, ids[start:end], data, ct, opts, cs)
			if resp != nil {
				responses = append(responses, resp)
			}
			if err != nil {
				return responses, err
			}
		}
		return responses, nil
	}

	resp, err := s.sendChunk(ctx, ids, data, ct, opts, cs)
	if resp != nil {
		responses = append(responses, resp)
	}
	return responses, err
}

func (s *Service) sendChunk(ctx context.Context, ids []string, data map[string]any, ct cloudmsg.CloudType, opts cloudmsg.Options, cs cloudmsg.CloudSettings) (*cloudmsg.Response, error) {
	split := ct == cloudmsg.CloudFCM && cs.Notifications == "Y"
	payload, err := cloudmsg.BuildPayload(ct, ids, data, opts, split)
	if err != nil {
		return nil, err
	}

	body, err := s.sender.Send(ctx, ct, payload)
	if err != nil {
		metrics.TransportErrors.Inc()
		s.log.Warn("gateway send failed",
			zap.String("cloud_type", string(ct)),
			zap.Int("recipients", len(ids)),
			zap.Error(err))
		return nil, err
	}

	var resp cloudmsg.Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		metrics.TransportErrors.Inc()
		return nil, &cloudmsg.TransportError{Op: "decode", Err: err}
	}
	metrics.DispatchChunks.Inc()

	return s.reconcile(ctx, ids, &resp, ct)
}
