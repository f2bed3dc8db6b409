package cloud

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

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/wheelibin/lumalite/internal/constants"
	"github.com/wheelibin/lumalite/internal/models"
)

type Mode string

const (
	// ModeAuto picks the api mode from the base url
	ModeAuto   Mode = ""
	ModeModern Mode = "modern"
	ModeLegacy Mode = "legacy"
)

type Options struct {
	APIKey  string
	BaseURL string
	Mode    Mode
	// number of retries after the first attempt, 0 means the default of 3
	RetryCount int

	HTTPClient *http.Client
	// used to wait between retries, time.Sleep when nil
	Sleep func(time.Duration)
}

type Client struct {
	logger     *log.Logger
	apiKey     string
	baseURL    string
	modern     bool
	retryCount int
	httpClient *http.Client
	sleep      func(time.Duration)

	// populated by ListDevices, control requests rely on it
	mu           sync.RWMutex
	deviceModels map[string]string
	skus         map[string]string
	capabilities map[string][]models.Capability
}

func NewCloudClient(logger *log.Logger, opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = constants.CloudDefaultBaseURL
	}

	modern := strings.Contains(baseURL, constants.CloudOpenAPIHost)
	switch opts.Mode {
	case ModeModern:
		modern = true
	case ModeLegacy:
		modern = false
	}

	retryCount := opts.RetryCount
	if retryCount <= 0 {
		retryCount = constants.CloudDefaultRetryCount
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	return &Client{
		logger:       logger,
		apiKey:       opts.APIKey,
		baseURL:      baseURL,
		modern:       modern,
		retryCount:   retryCount,
		httpClient:   httpClient,
		sleep:        sleep,
		deviceModels: map[string]string{},
		skus:         map[string]string{},
		capabilities: map[string][]models.Capability{},
	}
}

// BackoffDelay is the wait before retry number attempt+1
func BackoffDelay(attempt int) time.Duration {
	return constants.CloudBackoffBase * time.Duration(1<<attempt)
}

func (c *Client) ListDevices(ctx context.Context) ([]models.Device, error) {
	path := "/v1/devices"
	if c.modern {
		path = "/router/api/v1/user/devices"
	}

	body, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeDevices(body)
	if err != nil {
		return nil, err
	}

	devices := []models.Device{}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		id := item.id()
		if id == "" {
			continue
		}
		if item.Model != "" {
			c.deviceModels[id] = item.Model
		}
		if item.SKU != "" {
			c.skus[id] = item.SKU
		}
		device := item.toDevice()
		if len(device.Capabilities) > 0 {
			c.capabilities[id] = device.Capabilities
		}
		devices = append(devices, device)
	}

	c.logger.Debug("Read cloud devices", "total", len(devices))
	return devices, nil
}

// ResolveCapability maps a requested capability onto one the device advertises
func (c *Client) ResolveCapability(deviceID string, capType string, instance string) models.Capability {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.ResolveCapability(c.capabilities[deviceID], capType, instance)
}

func (c *Client) SetPower(ctx context.Context, deviceID string, on bool) error {
	value := 0
	if on {
		value = 1
	}
	return c.controlResolved(ctx, deviceID, constants.CapabilityOnOff, constants.InstancePowerSwitch, value)
}

func (c *Client) SetBrightness(ctx context.Context, deviceID string, level int) error {
	return c.controlResolved(ctx, deviceID, constants.CapabilityRange, constants.InstanceBrightness, max(0, min(100, level)))
}

func (c *Client) SetColor(ctx context.Context, deviceID string, color models.RGB) error {
	return c.controlResolved(ctx, deviceID, constants.CapabilityColorSetting, constants.InstanceColorRgb, color.ToInt())
}

func (c *Client) SetColorTemperature(ctx context.Context, deviceID string, kelvin int) error {
	return c.controlResolved(ctx, deviceID, constants.CapabilityColorSetting, constants.InstanceColorTemperatureK, kelvin)
}

func (c *Client) controlResolved(ctx context.Context, deviceID string, capType string, instance string, value any) error {
	resolved := c.ResolveCapability(deviceID, capType, instance)
	return c.ControlCapability(ctx, deviceID, models.CapabilityValue{
		Type:     resolved.Type,
		Instance: resolved.Instance,
		Value:    value,
	})
}

type controlRequest struct {
	RequestID string         `json:"requestId"`
	Payload   controlPayload `json:"payload"`
}

type controlPayload struct {
	SKU        string                  `json:"sku"`
	Device     string                  `json:"device"`
	Capability *models.CapabilityValue `json:"capability,omitempty"`
}

type legacyControlRequest struct {
	Device string        `json:"device"`
	Model  string        `json:"model"`
	Cmd    legacyCommand `json:"cmd"`
}

type legacyCommand struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ControlCapability sends the capability as given, no resolution is applied
func (c *Client) ControlCapability(ctx context.Context, deviceID string, capability models.CapabilityValue) error {
	if c.modern {
		c.mu.RLock()
		sku := c.skus[deviceID]
		c.mu.RUnlock()
		if sku == "" {
			return fmt.Errorf("%w: %s", ErrSkuMissing, deviceID)
		}

		c.logger.Debug("cloud control", "device", deviceID, "sku", sku, "type", capability.Type, "instance", capability.Instance, "value", capability.Value)
		_, err := c.request(ctx, http.MethodPost, "/router/api/v1/device/control", controlRequest{
			RequestID: uuid.NewString(),
			Payload:   controlPayload{SKU: sku, Device: deviceID, Capability: &capability},
		})
		return err
	}

	c.mu.RLock()
	model := c.deviceModels[deviceID]
	c.mu.RUnlock()

	_, err := c.request(ctx, http.MethodPut, "/v1/devices/control", legacyControlRequest{
		Device: deviceID,
		Model:  model,
		Cmd:    toLegacyCommand(capability),
	})
	return err
}

func toLegacyCommand(capability models.CapabilityValue) legacyCommand {
	switch capability.Type {
	case constants.CapabilityOnOff:
		if n, _ := numberOf(capability.Value); n == 1 {
			return legacyCommand{Name: "turn", Value: "on"}
		}
		return legacyCommand{Name: "turn", Value: "off"}
	case constants.CapabilityRange:
		return legacyCommand{Name: "brightness", Value: capability.Value}
	case constants.CapabilityColorSetting:
		if capability.Instance == constants.InstanceColorTemperatureK {
			return legacyCommand{Name: "colorTem", Value: capability.Value}
		}
		if n, ok := numberOf(capability.Value); ok {
			return legacyCommand{Name: "color", Value: models.RGBFromInt(n)}
		}
		return legacyCommand{Name: "color", Value: capability.Value}
	}
	return legacyCommand{Name: capability.Type, Value: capability.Value}
}

func numberOf(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}

func (c *Client) skuFor(deviceID string, sku string) string {
	if sku != "" {
		return sku
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.skus[deviceID]
}

func (c *Client) GetDynamicScenes(ctx context.Context, deviceID string, sku string) ([]models.SceneOption, error) {
	return c.getSceneOptions(ctx, "/router/api/v1/device/scenes", deviceID, sku)
}

func (c *Client) GetDiyScenes(ctx context.Context, deviceID string, sku string) ([]models.SceneOption, error) {
	return c.getSceneOptions(ctx, "/router/api/v1/device/diy-scenes", deviceID, sku)
}

func (c *Client) getSceneOptions(ctx context.Context, path string, deviceID string, sku string) ([]models.SceneOption, error) {
	body, err := c.request(ctx, http.MethodPost, path, controlRequest{
		RequestID: uuid.NewString(),
		Payload:   controlPayload{SKU: c.skuFor(deviceID, sku), Device: deviceID},
	})
	if err != nil {
		return nil, err
	}
	return decodeSceneOptions(body)
}

func (c *Client) GetDeviceState(ctx context.Context, deviceID string, sku string) (models.DeviceState, error) {
	body, err := c.request(ctx, http.MethodPost, "/router/api/v1/device/state", controlRequest{
		RequestID: uuid.NewString(),
		Payload:   controlPayload{SKU: c.skuFor(deviceID, sku), Device: deviceID},
	})
	if err != nil {
		return models.DeviceState{}, err
	}
	return decodeState(body)
}

// request performs the call, retrying transient failures with exponential backoff
func (c *Client) request(ctx context.Context, method string, path string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("error encoding request for %s: %w", path, err)
		}
		body = b
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := BackoffDelay(attempt - 1)
			c.logger.Debug("retrying cloud request", "path", path, "attempt", attempt, "delay", delay, "err", lastErr)
			c.sleep(delay)
		}

		respBody, retry, err := c.do(ctx, method, c.baseURL+path, body)
		if err == nil {
			return respBody, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	c.logger.Error("Error making Govee API call", "path", path, "err", lastErr)
	return nil, lastErr
}

// do makes a single attempt, reporting whether a failure is worth retrying
func (c *Client) do(ctx context.Context, method string, url string, body []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, &APIError{Message: err.Error(), Err: err}
	}
	req.Header.Set(constants.CloudAPIKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// a cancelled context won't succeed on retry
		retry := !errors.Is(err, context.Canceled)
		return nil, retry, &APIError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &APIError{Status: resp.StatusCode, Message: err.Error(), Err: err}
	}

	var base baseResponse
	_ = json.Unmarshal(respBody, &base)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := base.Message
		if msg == "" {
			msg = fmt.Sprintf("Govee API error (%d)", resp.StatusCode)
		}
		return nil, shouldRetry(resp.StatusCode), &APIError{Status: resp.StatusCode, Message: msg}
	}

	if base.Code != nil && *base.Code != constants.CloudCodeOK {
		msg := firstNonEmpty(base.Message, base.Msg, "Govee API error")
		// any non success application code is retried, the http status is what separates permanent failures
		return nil, true, &APIError{Code: *base.Code, Message: msg}
	}

	return respBody, false, nil
}
