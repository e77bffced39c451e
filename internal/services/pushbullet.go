package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rkechols/bulk-sms/internal/config"
	"github.com/rkechols/bulk-sms/internal/models"
)

const apiVersion = "2014-05-07"

// ErrClientClosed - the service was used outside an Open/Close pair.
var ErrClientClosed = errors.New("pushbullet service is not open; call Open before sending")

// APIError - the API answered with an error status, or with a body that could
// not be decoded. Carries enough to report and retry manually.
type APIError struct {
	StatusCode int
	Body       string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("pushbullet returned status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("pushbullet returned status %d with body %q", e.StatusCode, e.Body)
}

// ConnectionError - the API could not be reached at all.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return "failed to reach pushbullet: " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// PushbulletService talks to the pushbullet REST API: group SMS texts through
// a paired phone, and the device list to find that phone's iden.
type PushbulletService struct {
	apiKey   string
	deviceID string
	baseURL  string
	timeout  time.Duration

	mu       sync.Mutex
	client   *http.Client
	external bool
}

// NewPushbulletService builds a closed service from the config. The config is
// validated here so a missing credential fails before any request goes out.
func NewPushbulletService(cfg *config.Config) (*PushbulletService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PushbulletService{
		apiKey:   cfg.APIKey,
		deviceID: cfg.DeviceID,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		timeout:  cfg.Timeout,
	}, nil
}

// NewPushbulletServiceWithClient builds a service around a caller-owned
// http.Client. Open and Close become no-ops; the caller keeps ownership.
func NewPushbulletServiceWithClient(cfg *config.Config, client *http.Client) (*PushbulletService, error) {
	svc, err := NewPushbulletService(cfg)
	if err != nil {
		return nil, err
	}
	svc.client = client
	svc.external = true
	return svc, nil
}

// Open creates the shared http.Client. Pair with a deferred Close so the
// connection pool is released on every exit path.
func (s *PushbulletService) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.external {
		return nil
	}
	if s.client != nil {
		return errors.New("pushbullet service is already open")
	}
	s.client = &http.Client{Timeout: s.timeout}
	return nil
}

// Close releases the http.Client. Safe to call more than once.
func (s *PushbulletService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.external {
		return
	}
	if s.client != nil {
		s.client.CloseIdleConnections()
		s.client = nil
	}
}

func (s *PushbulletService) httpClient() (*http.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, ErrClientClosed
	}
	return s.client, nil
}

func (s *PushbulletService) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Api-Version", apiVersion)
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
}

type smsRequestData struct {
	TargetDeviceIden string   `json:"target_device_iden"`
	Addresses        []string `json:"addresses"`
	Message          string   `json:"message"`
	GUID             string   `json:"guid"`
}

type sendSMSRequest struct {
	Data smsRequestData `json:"data"`
}

type sendSMSResponse struct {
	Iden string `json:"iden"`
}

type deviceListResponse struct {
	Devices []models.Device `json:"devices"`
}

// SendSMS sends one text to the given numbers (multiple numbers become a
// group text) and returns the iden of the created message.
func (s *PushbulletService) SendSMS(ctx context.Context, phoneNumbers []string, message string) (string, error) {
	if len(phoneNumbers) == 0 {
		return "", errors.New("no phone numbers given")
	}
	client, err := s.httpClient()
	if err != nil {
		return "", err
	}

	// the API wants a short unique ident per message for dedup
	guid := strings.ReplaceAll(uuid.NewString(), "-", "")[:22]
	payload, err := json.Marshal(sendSMSRequest{Data: smsRequestData{
		TargetDeviceIden: s.deviceID,
		Addresses:        phoneNumbers,
		Message:          message,
		GUID:             guid,
	}})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/create-text", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return "", &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var parsed sendSMSResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes), Detail: "failed to decode response: " + err.Error()}
	}
	if parsed.Iden == "" {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes), Detail: "response is missing the message iden"}
	}
	return parsed.Iden, nil
}

// ListDevices returns the active devices on the account. Useful for finding
// the iden of the phone that should send the texts.
func (s *PushbulletService) ListDevices(ctx context.Context) ([]models.Device, error) {
	client, err := s.httpClient()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v2/devices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var parsed deviceListResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes), Detail: "failed to decode response: " + err.Error()}
	}

	devices := make([]models.Device, 0, len(parsed.Devices))
	for _, device := range parsed.Devices {
		if device.Active {
			devices = append(devices, device)
		}
	}
	return devices, nil
}

type MockSMSService struct {
	mu           sync.Mutex
	SentMessages []MockSMSMessage
	Devices      []models.Device
	FailNumbers  map[string]error
	nextIden     int
}

type MockSMSMessage struct {
	Numbers []string
	Message string
}

func NewMockSMSService() *MockSMSService {
	return &MockSMSService{
		SentMessages: make([]MockSMSMessage, 0),
	}
}

func (m *MockSMSService) SendSMS(_ context.Context, phoneNumbers []string, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = append(m.SentMessages, MockSMSMessage{Numbers: phoneNumbers, Message: message})
	for _, number := range phoneNumbers {
		if err, ok := m.FailNumbers[number]; ok {
			return "", err
		}
	}
	m.nextIden++
	return fmt.Sprintf("mock-iden-%d", m.nextIden), nil
}

func (m *MockSMSService) ListDevices(_ context.Context) ([]models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Devices, nil
}

func (m *MockSMSService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SentMessages)
}
