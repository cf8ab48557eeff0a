package cloudmsg_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lzyats/cloud-message-go/pkg/cloudmsg"
)

func TestBuildPayloadDeterministic(t *testing.T) {
	ids := []string{"abc"}
	data := map[string]any{"k": "v"}
	opts := cloudmsg.Options{CollapseKey: "ck", DryRun: true}

	payload, err := cloudmsg.BuildPayload(cloudmsg.CloudGCM, ids, data, opts, false)
	require.NoError(t, err)
	assert.Equal(t,
		`{"collapse_key":"ck","data":{"k":"v"},"dry_run":true,"registration_ids":["abc"]}`,
		string(payload))

	// Identical logical content serializes identically.
	again, err := cloudmsg.BuildPayload(cloudmsg.CloudGCM, ids, data, opts, false)
	require.NoError(t, err)
	assert.Equal(t, string(payload), string(again))
}

func TestBuildPayloadPlainData(t *testing.T) {
	// GCM never splits: data travels verbatim, falsy values included.
	data := map[string]any{"message": "hi", "title": "T", "empty": ""}
	payload, err := cloudmsg.BuildPayload(cloudmsg.CloudGCM, []string{"r1"}, data, cloudmsg.Options{}, false)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.NotContains(t, decoded, "notification")
	assert.Equal(t, map[string]any{"message": "hi", "title": "T", "empty": ""}, decoded["data"])
}

func TestBuildPayloadSplitNotification(t *testing.T) {
	t.Run("message renamed to body, data key dropped when emptied", func(t *testing.T) {
		data := map[string]any{"message": "hi", "title": "T"}
		payload, err := cloudmsg.BuildPayload(cloudmsg.CloudFCM, []string{"r1"}, data, cloudmsg.Options{}, true)
		require.NoError(t, err)
		assert.Equal(t,
			`{"notification":{"body":"hi","title":"T"},"registration_ids":["r1"]}`,
			string(payload))
	})

	t.Run("remainder of data survives under data key", func(t *testing.T) {
		data := map[string]any{"message": "hi", "deep_link": "app://x"}
		payload, err := cloudmsg.BuildPayload(cloudmsg.CloudFCM, []string{"r1"}, data, cloudmsg.Options{}, true)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(payload, &decoded))
		assert.Equal(t, map[string]any{"deep_link": "app://x"}, decoded["data"])
		assert.Equal(t, map[string]any{"body": "hi"}, decoded["notification"])
	})

	t.Run("flag disabled keeps data verbatim", func(t *testing.T) {
		data := map[string]any{"message": "hi", "title": "T"}
		payload, err := cloudmsg.BuildPayload(cloudmsg.CloudFCM, []string{"r1"}, data, cloudmsg.Options{}, false)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(payload, &decoded))
		assert.NotContains(t, decoded, "notification")
		assert.Equal(t, map[string]any{"message": "hi", "title": "T"}, decoded["data"])
	})

	t.Run("input data map is not mutated", func(t *testing.T) {
		data := map[string]any{"message": "hi", "title": "T"}
		_, err := cloudmsg.BuildPayload(cloudmsg.CloudFCM, []string{"r1"}, data, cloudmsg.Options{}, true)
		require.NoError(t, err)
		assert.Len(t, data, 2)
	})
}

func TestBuildPayloadDataBeatsOptions(t *testing.T) {
	data := map[string]any{"title": "from-data"}
	opts := cloudmsg.Options{Title: "from-options", Icon: "bell"}
	payload, err := cloudmsg.BuildPayload(cloudmsg.CloudFCM, []string{"r1"}, data, opts, true)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, map[string]any{"icon": "bell", "title": "from-data"}, decoded["notification"])
}

func TestBuildPayloadSkipsZeroOptions(t *testing.T) {
	opts := cloudmsg.Options{
		Priority:   "high",
		TimeToLive: 0,
		DryRun:     false,
	}
	payload, err := cloudmsg.BuildPayload(cloudmsg.CloudFCM, []string{"r1"}, nil, opts, true)
	require.NoError(t, err)
	assert.Equal(t, `{"priority":"high","registration_ids":["r1"]}`, string(payload))
}

func TestBuildPayloadDropsFalsyNotificationData(t *testing.T) {
	data := map[string]any{"sound": "", "badge": "3"}
	payload, err := cloudmsg.BuildPayload(cloudmsg.CloudFCM, []string{"r1"}, data, cloudmsg.Options{}, true)
	require.NoError(t, err)
	assert.Equal(t, `{"notification":{"badge":"3"},"registration_ids":["r1"]}`, string(payload))
}

func TestBuildPayloadTopicAddressing(t *testing.T) {
	opts := cloudmsg.Options{To: "/topics/news"}
	payload, err := cloudmsg.BuildPayload(cloudmsg.CloudFCM, nil, map[string]any{"message": "hi"}, opts, true)
	require.NoError(t, err)
	assert.Equal(t, `{"notification":{"body":"hi"},"to":"/topics/news"}`, string(payload))
}

func TestBuildPayloadUnknownCloudType(t *testing.T) {
	_, err := cloudmsg.BuildPayload(cloudmsg.CloudType("APNS"), []string{"r1"}, nil, cloudmsg.Options{}, false)
	var cfgErr *cloudmsg.ConfigError
	require.True(t, errors.As(err, &cfgErr))
}
