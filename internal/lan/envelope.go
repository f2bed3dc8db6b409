package lan

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wheelibin/lumalite/internal/models"
)

// every datagram in either direction is wrapped as {"msg":{"cmd":..., "data":...}}
type envelope struct {
	Msg message `json:"msg"`
}

type message struct {
	Cmd  string `json:"cmd"`
	Data any    `json:"data"`
}

type scanData struct {
	AccountTopic string `json:"account_topic"`
}

type valueData struct {
	Value int `json:"value"`
}

type colorData struct {
	Color            models.RGB `json:"color"`
	ColorTemInKelvin int        `json:"colorTemInKelvin"`
}

func encodeEnvelope(cmd string, data any) ([]byte, error) {
	if data == nil {
		data = struct{}{}
	}
	b, err := json.Marshal(envelope{Msg: message{Cmd: cmd, Data: data}})
	if err != nil {
		return nil, fmt.Errorf("error encoding %s command: %w", cmd, err)
	}
	return b, nil
}

// the inbound side is looser than what we send: devices and firmware versions
// disagree on where the payload lives, so data is looked for in msg.data, then data, then the root
type inboundEnvelope struct {
	Msg *struct {
		Cmd  string          `json:"cmd"`
		Data json.RawMessage `json:"data"`
	} `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type scanReply struct {
	Device     string          `json:"device"`
	DeviceID   string          `json:"deviceId"`
	ID         string          `json:"id"`
	IP         string          `json:"ip"`
	Port       json.RawMessage `json:"port"`
	DeviceName string          `json:"deviceName"`
	Name       string          `json:"name"`
	Model      string          `json:"model"`
	SKU        string          `json:"sku"`
}

func (r scanReply) id() string {
	return firstNonEmpty(r.Device, r.DeviceID, r.ID)
}

func (r scanReply) port() (int, bool) {
	var p int
	if len(r.Port) == 0 || json.Unmarshal(r.Port, &p) != nil {
		return 0, false
	}
	return p, true
}

// Status is the payload of a devStatus reply
type Status struct {
	OnOff            *int        `json:"onOff"`
	Brightness       *int        `json:"brightness"`
	Color            *models.RGB `json:"color"`
	ColorTemInKelvin *int        `json:"colorTemInKelvin"`
}

// DeviceState converts the reply into the transport independent state snapshot
func (s Status) DeviceState() models.DeviceState {
	online := true
	power := s.OnOff != nil && *s.OnOff == 1
	return models.DeviceState{
		Online:            &online,
		Power:             &power,
		Brightness:        s.Brightness,
		ColorRgb:          s.Color,
		ColorTemperatureK: s.ColorTemInKelvin,
	}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// payloadOf returns the command name (if any) and the data object of an inbound datagram
func payloadOf(raw []byte) (string, json.RawMessage, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, err
	}

	var (
		cmd  string
		data json.RawMessage
	)
	switch {
	case env.Msg != nil && !isNull(env.Msg.Data):
		cmd = env.Msg.Cmd
		data = env.Msg.Data
	case !isNull(env.Data):
		data = env.Data
	default:
		if env.Msg != nil {
			cmd = env.Msg.Cmd
		}
		data = raw
	}

	// some firmware sends data as a json encoded string
	var s string
	if json.Unmarshal(data, &s) == nil {
		data = json.RawMessage(s)
		if !json.Valid(data) {
			data = json.RawMessage("{}")
		}
	}
	return cmd, data, nil
}

func decodeScanReply(raw []byte) (cmd string, reply scanReply, root scanReply, err error) {
	cmd, data, err := payloadOf(raw)
	if err != nil {
		return "", scanReply{}, scanReply{}, err
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", scanReply{}, scanReply{}, err
	}
	// root level fields are a fallback for the data fields
	_ = json.Unmarshal(raw, &root)
	return cmd, reply, root, nil
}

func decodeStatus(raw []byte) (Status, error) {
	_, data, err := payloadOf(raw)
	if err != nil {
		return Status{}, err
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return Status{}, err
	}
	return st, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
