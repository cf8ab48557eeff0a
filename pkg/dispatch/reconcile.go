package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/lzyats/cloud-message-go/pkg/cloudmsg"
	"github.com/lzyats/cloud-message-go/pkg/metrics"
)

// reconcile maps the per-recipient results of one chunk back onto the device
// registry and echoes the response. Results align with ids by position; that
// positional pairing is the only link between a result and its recipient, so
// deactivation and migration are skipped for results that cannot be paired
// (topic/condition sends submit no IDs). Error classification needs no
// recipient and runs for every result regardless.
//
// Every registry mutation is applied before a GatewayError is returned:
// a failed recipient must not block deactivations or canonical-ID migrations
// for the other recipients of the same chunk.
func (s *Service) reconcile(ctx context.Context, ids []string, resp *cloudmsg.Response, ct cloudmsg.CloudType) (*cloudmsg.Response, error) {
	if resp.Failure == 0 && resp.CanonicalIDs == 0 {
		return resp, nil
	}

	type migration struct {
		oldID string
		newID string
	}
	var deactivate []string
	var migrations []migration
	gatewayErr := false

	for i, result := range resp.Results {
		paired := i < len(ids)
		switch result.Error {
		case "":
		case cloudmsg.ErrorNotRegistered, cloudmsg.ErrorInvalidRegistration:
			// The registration ID can no longer receive messages.
			if paired {
				deactivate = append(deactivate, ids[i])
			}
		default:
			gatewayErr = true
		}
		if result.RegistrationID != "" && paired {
			// Canonical ID: the gateway wants ids[i] replaced.
			migrations = append(migrations, migration{oldID: ids[i], newID: result.RegistrationID})
		}
	}

	if len(deactivate) > 0 {
		if err := s.reg.Deactivate(ctx, ct, deactivate); err != nil {
			return resp, err
		}
		metrics.Deactivations.Add(float64(len(deactivate)))
		s.log.Info("deactivated stale registrations",
			zap.String("cloud_type", string(ct)),
			zap.Int("count", len(deactivate)))
	}
	for _, m := range migrations {
		if err := s.migrateCanonicalID(ctx, ct, m.oldID, m.newID); err != nil {
			return resp, err
		}
	}

	if gatewayErr {
		metrics.GatewayErrors.Inc()
		return resp, &cloudmsg.GatewayError{Response: resp}
	}
	return resp, nil
}

// migrateCanonicalID replaces oldID with the canonical newID. When an active
// record already exists under newID the device is already tracked, so oldID
// is deactivated instead of renamed; checking that first keeps a single
// physical device from ending up with two active records.
func (s *Service) migrateCanonicalID(ctx context.Context, ct cloudmsg.CloudType, oldID, newID string) error {
	existing, err := s.reg.Find(ctx, ct, newID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Active {
		metrics.CanonicalConflicts.Inc()
		return s.reg.Deactivate(ctx, ct, []string{oldID})
	}
	if err := s.reg.Rename(ctx, ct, oldID, newID); err != nil {
		return err
	}
	metrics.CanonicalRenames.Inc()
	return nil
}
