package registry

import (
	"context"

	"github.com/lzyats/cloud-message-go/pkg/cloudmsg"
)

// Device is one device+app installation registered with a cloud provider.
// Records are keyed by (registration ID, cloud type); the dispatch core only
// ever updates them, it never creates or destroys them.
type Device struct {
	RegistrationID string             `json:"registration_id"`
	CloudType      cloudmsg.CloudType `json:"cloud_type"`
	Active         bool               `json:"active"`
}

// Registry persists device registration state for dispatch reconciliation.
type Registry interface {
	// FilterByIDs returns the devices registered under ids for ct.
	// Unknown IDs are skipped, not errors.
	FilterByIDs(ctx context.Context, ct cloudmsg.CloudType, ids []string) ([]Device, error)

	// Find returns the device registered under id, or nil when unknown.
	Find(ctx context.Context, ct cloudmsg.CloudType, id string) (*Device, error)

	// Deactivate clears the active flag on every id in one bulk update.
	Deactivate(ctx context.Context, ct cloudmsg.CloudType, ids []string) error

	// Rename moves the record keyed by oldID to newID, leaving its active
	// flag untouched. Renaming an unknown oldID is a no-op.
	Rename(ctx context.Context, ct cloudmsg.CloudType, oldID, newID string) error
}
