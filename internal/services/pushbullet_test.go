package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/rkechols/bulk-sms/internal/config"
	"github.com/rkechols/bulk-sms/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		APIKey:   "key123",
		DeviceID: "device123",
		BaseURL:  config.DefaultBaseURL,
		Timeout:  5 * time.Second,
	}
}

func newTestService(t *testing.T) *PushbulletService {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	svc, err := NewPushbulletServiceWithClient(testConfig(), client)
	assert.NoError(t, err)
	return svc
}

func TestSendSMS(t *testing.T) {
	svc := newTestService(t)

	var captured sendSMSRequest
	httpmock.RegisterResponder("POST", config.DefaultBaseURL+"/v3/create-text",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer key123", req.Header.Get("Authorization"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
			return httpmock.NewJsonResponse(http.StatusOK, map[string]string{"iden": "msg-1"})
		})

	iden, err := svc.SendSMS(context.Background(), []string{"5555550001", "5555550002"}, "Hello world")

	assert.NoError(t, err)
	assert.Equal(t, "msg-1", iden)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Equal(t, "device123", captured.Data.TargetDeviceIden)
	assert.Equal(t, []string{"5555550001", "5555550002"}, captured.Data.Addresses)
	assert.Equal(t, "Hello world", captured.Data.Message)
	assert.Len(t, captured.Data.GUID, 22)
}

func TestSendSMSAPIError(t *testing.T) {
	svc := newTestService(t)

	httpmock.RegisterResponder("POST", config.DefaultBaseURL+"/v3/create-text",
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error": "invalid token"}`))

	_, err := svc.SendSMS(context.Background(), []string{"5555550001"}, "Hello world")

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "invalid token")
}

func TestSendSMSMalformedResponse(t *testing.T) {
	svc := newTestService(t)

	httpmock.RegisterResponder("POST", config.DefaultBaseURL+"/v3/create-text",
		httpmock.NewStringResponder(http.StatusOK, "definitely not json"))

	_, err := svc.SendSMS(context.Background(), []string{"5555550001"}, "Hello world")

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Detail, "failed to decode response")
}

func TestSendSMSMissingIden(t *testing.T) {
	svc := newTestService(t)

	httpmock.RegisterResponder("POST", config.DefaultBaseURL+"/v3/create-text",
		httpmock.NewStringResponder(http.StatusOK, `{}`))

	_, err := svc.SendSMS(context.Background(), []string{"5555550001"}, "Hello world")

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Detail, "missing the message iden")
}

func TestSendSMSConnectionError(t *testing.T) {
	svc := newTestService(t)

	httpmock.RegisterResponder("POST", config.DefaultBaseURL+"/v3/create-text",
		httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := svc.SendSMS(context.Background(), []string{"5555550001"}, "Hello world")

	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestSendSMSNoNumbers(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SendSMS(context.Background(), nil, "Hello world")

	assert.Error(t, err)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestNewPushbulletServiceInvalidConfig(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	cfg := testConfig()
	cfg.APIKey = ""

	_, err := NewPushbulletService(cfg)

	var configErr *config.ConfigError
	assert.ErrorAs(t, err, &configErr)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestOpenClose(t *testing.T) {
	svc, err := NewPushbulletService(testConfig())
	assert.NoError(t, err)

	_, err = svc.SendSMS(context.Background(), []string{"5555550001"}, "hi")
	assert.ErrorIs(t, err, ErrClientClosed)

	assert.NoError(t, svc.Open())
	assert.Error(t, svc.Open(), "second open must fail")

	svc.Close()
	svc.Close() // idempotent

	_, err = svc.SendSMS(context.Background(), []string{"5555550001"}, "hi")
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestListDevices(t *testing.T) {
	svc := newTestService(t)

	httpmock.RegisterResponder("GET", config.DefaultBaseURL+"/v2/devices",
		httpmock.NewStringResponder(http.StatusOK, `{
			"devices": [
				{"iden": "dev-1", "nickname": "my phone", "active": true, "has_sms": true},
				{"iden": "dev-2", "nickname": "old phone", "active": false, "has_sms": true}
			]
		}`))

	devices, err := svc.ListDevices(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, []models.Device{
		{Iden: "dev-1", Nickname: "my phone", Active: true, HasSMS: true},
	}, devices)
}

func TestListDevicesAPIError(t *testing.T) {
	svc := newTestService(t)

	httpmock.RegisterResponder("GET", config.DefaultBaseURL+"/v2/devices",
		httpmock.NewStringResponder(http.StatusForbidden, `{"error": "forbidden"}`))

	_, err := svc.ListDevices(context.Background())

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestMockSMSService(t *testing.T) {
	mock := NewMockSMSService()

	iden, err := mock.SendSMS(context.Background(), []string{"5555550001"}, "test message")
	assert.NoError(t, err)
	assert.NotEmpty(t, iden)
	assert.Equal(t, 1, mock.CallCount())

	mock.FailNumbers = map[string]error{"5555550002": errors.New("boom")}
	_, err = mock.SendSMS(context.Background(), []string{"5555550002"}, "test message")
	assert.Error(t, err)
	assert.Equal(t, 2, mock.CallCount())
}
