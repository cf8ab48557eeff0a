package cloudmsg

// CloudType selects which messaging provider profile a dispatch uses.
type CloudType string

const (
	CloudGCM CloudType = "GCM"
	CloudFCM CloudType = "FCM"
)

// Gateway error codes that invalidate a registration ID. Devices carrying
// one of these are deactivated instead of surfacing an error.
const (
	ErrorNotRegistered       = "NotRegistered"
	ErrorInvalidRegistration = "InvalidRegistration"
)

// Options enumerates every request option the gateway recognizes.
// Zero-valued fields are never transmitted; the comment on each field
// documents the omitted zero value.
type Options struct {
	// Targets. At most one of the registration-ID list, To, Condition or
	// NotificationKey should address a request.
	To              string `json:"to,omitempty"`               // "" omitted
	Condition       string `json:"condition,omitempty"`        // "" omitted
	NotificationKey string `json:"notification_key,omitempty"` // "" omitted

	// Delivery options.
	CollapseKey           string `json:"collapse_key,omitempty"`            // "" omitted
	Priority              string `json:"priority,omitempty"`                // "" omitted
	ContentAvailable      bool   `json:"content_available,omitempty"`       // false omitted
	DelayWhileIdle        bool   `json:"delay_while_idle,omitempty"`        // false omitted
	TimeToLive            int    `json:"time_to_live,omitempty"`            // 0 omitted
	RestrictedPackageName string `json:"restricted_package_name,omitempty"` // "" omitted
	DryRun                bool   `json:"dry_run,omitempty"`                 // false omitted

	// Notification display fields, only honored by the split payload scheme.
	// A field set both here and in the message data resolves to the data value.
	Title        string   `json:"title,omitempty"`          // "" omitted
	Body         string   `json:"body,omitempty"`           // "" omitted
	Icon         string   `json:"icon,omitempty"`           // "" omitted
	Sound        string   `json:"sound,omitempty"`          // "" omitted
	Badge        string   `json:"badge,omitempty"`          // "" omitted
	Color        string   `json:"color,omitempty"`          // "" omitted
	Tag          string   `json:"tag,omitempty"`            // "" omitted
	ClickAction  string   `json:"click_action,omitempty"`   // "" omitted
	BodyLocKey   string   `json:"body_loc_key,omitempty"`   // "" omitted
	BodyLocArgs  []string `json:"body_loc_args,omitempty"`  // empty omitted
	TitleLocKey  string   `json:"title_loc_key,omitempty"`  // "" omitted
	TitleLocArgs []string `json:"title_loc_args,omitempty"` // empty omitted
}

// Response is the gateway's answer to one dispatched chunk. Results, when
// present, is positionally aligned with the registration-ID list submitted
// in the request; the response itself carries no recipient identifier.
type Response struct {
	MulticastID  int64    `json:"multicast_id"`
	Success      int      `json:"success"`
	Failure      int      `json:"failure"`
	CanonicalIDs int      `json:"canonical_ids"`
	Results      []Result `json:"results,omitempty"`
}

// Result is the delivery outcome for a single recipient. A non-empty
// RegistrationID is a canonical ID: the provider's replacement for the
// registration ID submitted at the same position.
type Result struct {
	MessageID      string `json:"message_id,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Request is the queued form of one dispatch submission (producer -> Redis
// queue -> worker). Treat this as a contract.
type Request struct {
	RegistrationIDs []string       `json:"registration_ids,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
	CloudType       CloudType      `json:"cloud_type"`
	Options         Options        `json:"options,omitempty"`
}
