package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lzyats/cloud-message-go/pkg/cloudmsg"
)

// fakeSender records every payload and replays canned bodies in order.
type fakeSender struct {
	payloads [][]byte
	bodies   []string
	errs     []error
}

func (f *fakeSender) Send(ctx context.Context, ct cloudmsg.CloudType, payload []byte) (string, error) {
	i := len(f.payloads)
	f.payloads = append(f.payloads, payload)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	body := `{"success":0,"failure":0,"canonical_ids":0}`
	if i < len(f.bodies) && f.bodies[i] != "" {
		body = f.bodies[i]
	}
	if err != nil {
		return "", err
	}
	return body, nil
}

func (f *fakeSender) sentIDs(t *testing.T, i int) []string {
	t.Helper()
	var decoded struct {
		RegistrationIDs []string `json:"registration_ids"`
	}
	require.NoError(t, json.Unmarshal(f.payloads[i], &decoded))
	return decoded.RegistrationIDs
}

func cappedSettings(cap int) cloudmsg.Settings {
	st := cloudmsg.Settings{}
	st.GCM.MaxRecipients = cap
	st.FCM.MaxRecipients = cap
	return st
}

func TestSendBulkChunking(t *testing.T) {
	sender := &fakeSender{}
	svc := New(cappedSettings(2), sender, &mockRegistry{}, nil)

	ids := []string{"r1", "r2", "r3", "r4", "r5"}
	responses, err := svc.SendBulk(context.Background(), ids, nil, cloudmsg.CloudFCM, cloudmsg.Options{})
	require.NoError(t, err)

	// ceil(5/2) chunks, one response per chunk, in input order.
	require.Len(t, responses, 3)
	require.Len(t, sender.payloads, 3)
	assert.Equal(t, []string{"r1", "r2"}, sender.sentIDs(t, 0))
	assert.Equal(t, []string{"r3", "r4"}, sender.sentIDs(t, 1))
	assert.Equal(t, []string{"r5"}, sender.sentIDs(t, 2))
}

func TestSendBulkExactCapSingleRequest(t *testing.T) {
	sender := &fakeSender{}
	svc := New(cappedSettings(3), sender, &mockRegistry{}, nil)

	responses, err := svc.SendBulk(context.Background(), []string{"r1", "r2", "r3"}, nil, cloudmsg.CloudFCM, cloudmsg.Options{})
	require.NoError(t, err)
	require.Len(t, responses, 1)
	require.Len(t, sender.payloads, 1)
	assert.Equal(t, []string{"r1", "r2", "r3"}, sender.sentIDs(t, 0))
}

func TestSendBulkNullAddressing(t *testing.T) {
	sender := &fakeSender{}
	svc := New(cloudmsg.Settings{}, sender, &mockRegistry{}, nil)

	responses, err := svc.SendBulk(context.Background(), nil, map[string]any{"message": "hi"}, cloudmsg.CloudFCM, cloudmsg.Options{})
	require.NoError(t, err)
	assert.Nil(t, responses)
	assert.Empty(t, sender.payloads)
}

func TestSendBulkTopic(t *testing.T) {
	sender := &fakeSender{}
	svc := New(cloudmsg.Settings{}, sender, &mockRegistry{}, nil)

	opts := cloudmsg.Options{To: "/topics/news"}
	responses, err := svc.SendBulk(context.Background(), nil, map[string]any{"message": "hi"}, cloudmsg.CloudFCM, opts)
	require.NoError(t, err)
	require.Len(t, responses, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(sender.payloads[0], &decoded))
	assert.Equal(t, "/topics/news", decoded["to"])
	assert.NotContains(t, decoded, "registration_ids")
}

func TestSendBulkUnknownCloudType(t *testing.T) {
	sender := &fakeSender{}
	svc := New(cloudmsg.Settings{}, sender, &mockRegistry{}, nil)

	_, err := svc.SendBulk(context.Background(), []string{"r1"}, nil, cloudmsg.CloudType("APNS"), cloudmsg.Options{})
	var cfgErr *cloudmsg.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Empty(t, sender.payloads)
}

func TestSendBulkStopsAfterChunkError(t *testing.T) {
	sender := &fakeSender{
		errs: []error{nil, &cloudmsg.TransportError{Op: "post", Err: errors.New("boom")}},
	}
	svc := New(cappedSettings(1), sender, &mockRegistry{}, nil)

	responses, err := svc.SendBulk(context.Background(), []string{"r1", "r2", "r3"}, nil, cloudmsg.CloudFCM, cloudmsg.Options{})
	var trErr *cloudmsg.TransportError
	require.True(t, errors.As(err, &trErr))

	// The first chunk's reconciled response is kept; r3 was never sent.
	assert.Len(t, responses, 1)
	assert.Len(t, sender.payloads, 2)
}

func TestSendBulkReconcilesPerChunk(t *testing.T) {
	reg := &mockRegistry{}
	reg.On("Deactivate", mock.Anything, cloudmsg.CloudFCM, []string{"r3"}).Return(nil).Once()

	sender := &fakeSender{
		bodies: []string{
			`{"success":2,"failure":0,"canonical_ids":0,"results":[{"message_id":"1"},{"message_id":"2"}]}`,
			`{"success":0,"failure":1,"canonical_ids":0,"results":[{"error":"NotRegistered"}]}`,
		},
	}
	svc := New(cappedSettings(2), sender, reg, nil)

	responses, err := svc.SendBulk(context.Background(), []string{"r1", "r2", "r3"}, nil, cloudmsg.CloudFCM, cloudmsg.Options{})
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, 1, responses[1].Failure)
	reg.AssertExpectations(t)
}

func TestSendBulkGatewayErrorCarriesResponse(t *testing.T) {
	sender := &fakeSender{
		bodies: []string{`{"success":0,"failure":1,"canonical_ids":0,"results":[{"error":"Unavailable"}]}`},
	}
	svc := New(cloudmsg.Settings{}, sender, &mockRegistry{}, nil)

	responses, err := svc.SendBulk(context.Background(), []string{"r1"}, nil, cloudmsg.CloudFCM, cloudmsg.Options{})
	var gwErr *cloudmsg.GatewayError
	require.True(t, errors.As(err, &gwErr))
	require.Len(t, responses, 1)
	assert.Same(t, responses[0], gwErr.Response)
}

func TestSendBulkMalformedBody(t *testing.T) {
	sender := &fakeSender{bodies: []string{`not json`}}
	svc := New(cloudmsg.Settings{}, sender, &mockRegistry{}, nil)

	_, err := svc.SendBulk(context.Background(), []string{"r1"}, nil, cloudmsg.CloudFCM, cloudmsg.Options{})
	var trErr *cloudmsg.TransportError
	require.True(t, errors.As(err, &trErr))
	assert.Equal(t, "decode", trErr.Op)
}

func TestSend(t *testing.T) {
	t.Run("forwards a one-element list", func(t *testing.T) {
		sender := &fakeSender{bodies: []string{`{"success":1,"failure":0,"canonical_ids":0,"results":[{"message_id":"1"}]}`}}
		svc := New(cloudmsg.Settings{}, sender, &mockRegistry{}, nil)

		resp, err := svc.Send(context.Background(), "r1", map[string]any{"message": "hi"}, cloudmsg.CloudFCM, cloudmsg.Options{})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, 1, resp.Success)
		assert.Equal(t, []string{"r1"}, sender.sentIDs(t, 0))
	})

	t.Run("empty id is a no-op", func(t *testing.T) {
		sender := &fakeSender{}
		svc := New(cloudmsg.Settings{}, sender, &mockRegistry{}, nil)

		resp, err := svc.Send(context.Background(), "", nil, cloudmsg.CloudFCM, cloudmsg.Options{})
		require.NoError(t, err)
		assert.Nil(t, resp)
		assert.Empty(t, sender.payloads)
	})
}
