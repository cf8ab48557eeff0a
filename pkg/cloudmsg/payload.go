package cloudmsg

import "encoding/json"

// Recognized payload keys, per the legacy HTTP server reference:
// https://firebase.google.com/docs/cloud-messaging/http-server-ref
var fcmNotificationKeys = []string{
	"title", "body", "icon", "sound", "badge", "color", "tag", "click_action",
	"body_loc_key", "body_loc_args", "title_loc_key", "title_loc_args",
}

// BuildPayload assembles the JSON request body for one chunk.
//
// A non-empty ids list becomes the registration_ids field; otherwise
// addressing comes from the options (topic or condition). When ct is FCM and
// splitNotification is on, the notification display fields are pulled out of
// data (falling back to opts for fields data lacks) and nested under a
// notification key; whatever remains of data travels under the data key.
// Option fields at their zero value are never transmitted.
//
// Output is compact JSON with sorted keys, so identical logical content
// always serializes identically.
func BuildPayload(ct CloudType, ids []string, data map[string]any, opts Options, splitNotification bool) ([]byte, error) {
	if ct != CloudGCM && ct != CloudFCM {
		return nil, &ConfigError{Reason: "cloud type must be GCM or FCM, not " + string(ct)}
	}

	payload := make(map[string]any)
	if len(ids) > 0 {
		payload["registration_ids"] = ids
	}

	// data is shared across chunks; work on a copy.
	body := make(map[string]any, len(data))
	for k, v := range data {
		body[k] = v
	}

	if ct == CloudFCM && splitNotification {
		notification := opts.notificationFields()
		if v, ok := body["message"]; ok {
			delete(body, "message")
			notification["body"] = v
		}
		for _, key := range fcmNotificationKeys {
			v, ok := body[key]
			if !ok {
				continue
			}
			delete(body, key)
			if truthy(v) {
				notification[key] = v
			}
		}
		if len(notification) > 0 {
			payload["notification"] = notification
		}
	}

	if len(body) > 0 {
		payload["data"] = body
	}
	for k, v := range opts.targetFields() {
		payload[k] = v
	}
	for k, v := range opts.optionFields() {
		payload[k] = v
	}

	return json.Marshal(payload)
}

func (o Options) targetFields() map[string]any {
	m := make(map[string]any)
	if o.To != "" {
		m["to"] = o.To
	}
	if o.Condition != "" {
		m["condition"] = o.Condition
	}
	if o.NotificationKey != "" {
		m["notification_key"] = o.NotificationKey
	}
	return m
}

func (o Options) optionFields() map[string]any {
	m := make(map[string]any)
	if o.CollapseKey != "" {
		m["collapse_key"] = o.CollapseKey
	}
	if o.Priority != "" {
		m["priority"] = o.Priority
	}
	if o.ContentAvailable {
		m["content_available"] = true
	}
	if o.DelayWhileIdle {
		m["delay_while_idle"] = true
	}
	if o.TimeToLive != 0 {
		m["time_to_live"] = o.TimeToLive
	}
	if o.RestrictedPackageName != "" {
		m["restricted_package_name"] = o.RestrictedPackageName
	}
	if o.DryRun {
		m["dry_run"] = true
	}
	return m
}

func (o Options) notificationFields() map[string]any {
	m := make(map[string]any)
	if o.Title != "" {
		m["title"] = o.Title
	}
	if o.Body != "" {
		m["body"] = o.Body
	}
	if o.Icon != "" {
		m["icon"] = o.Icon
	}
	if o.Sound != "" {
		m["sound"] = o.Sound
	}
	if o.Badge != "" {
		m["badge"] = o.Badge
	}
	if o.Color != "" {
		m["color"] = o.Color
	}
	if o.Tag != "" {
		m["tag"] = o.Tag
	}
	if o.ClickAction != "" {
		m["click_action"] = o.ClickAction
	}
	if o.BodyLocKey != "" {
		m["body_loc_key"] = o.BodyLocKey
	}
	if len(o.BodyLocArgs) > 0 {
		m["body_loc_args"] = o.BodyLocArgs
	}
	if o.TitleLocKey != "" {
		m["title_loc_key"] = o.TitleLocKey
	}
	if len(o.TitleLocArgs) > 0 {
		m["title_loc_args"] = o.TitleLocArgs
	}
	return m
}

// truthy mirrors the wire-omission policy for free-form data values: empty
// and zero values are dropped rather than transmitted.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
