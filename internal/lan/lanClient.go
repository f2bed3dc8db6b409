package lan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/ipv4"

	"github.com/wheelibin/lumalite/internal/constants"
	"github.com/wheelibin/lumalite/internal/models"
)

const maxDatagramSize = 4096

type Options struct {
	ScanAddress      string
	ScanPort         int
	ResponsePort     int
	ControlPort      int
	DiscoveryTimeout time.Duration
	StatusTimeout    time.Duration
}

// DefaultOptions returns the well known multicast group, ports and timeouts of the protocol
func DefaultOptions() Options {
	return Options{
		ScanAddress:      constants.LanScanAddress,
		ScanPort:         constants.LanScanPort,
		ResponsePort:     constants.LanResponsePort,
		ControlPort:      constants.LanControlPort,
		DiscoveryTimeout: constants.LanDiscoveryTimeout,
		StatusTimeout:    constants.LanStatusTimeout,
	}
}

type target struct {
	ip   string
	port int
}

func (t target) addr() (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp4", net.JoinHostPort(t.ip, strconv.Itoa(t.port)))
}

// Client talks to devices on the local network over UDP.
//
// Devices must be discovered before they can be controlled: the address of each
// device is only known from the replies to the last scan.
type Client struct {
	logger *log.Logger
	opts   Options

	mu      sync.RWMutex
	devices map[string]target

	// one scan at a time, replies to a shared port only reach one socket
	scanMu sync.Mutex
}

func NewLanClient(logger *log.Logger, opts Options) *Client {
	return &Client{logger: logger, opts: opts, devices: map[string]target{}}
}

// Discover sends a scan to the multicast group and collects every distinct reply
// received within the discovery window. The discovery table is rebuilt from the replies.
func (c *Client) Discover(ctx context.Context) ([]models.Device, error) {
	payload, err := encodeEnvelope(constants.LanCmdScan, scanData{AccountTopic: "reserve"})
	if err != nil {
		return nil, err
	}

	c.scanMu.Lock()
	defer c.scanMu.Unlock()

	c.mu.Lock()
	c.devices = map[string]target{}
	c.mu.Unlock()

	listener, err := listenUDP(ctx, c.opts.ResponsePort)
	if err != nil {
		return nil, fmt.Errorf("error listening on lan response port %d: %w", c.opts.ResponsePort, err)
	}
	defer listener.Close()

	group := net.ParseIP(c.opts.ScanAddress)
	if group != nil && group.IsMulticast() {
		pc := ipv4.NewPacketConn(listener)
		// a failed join still lets unicast replies through, so carry on with the scan
		if err := pc.JoinGroup(nil, &net.UDPAddr{IP: group}); err != nil {
			c.logger.Debug("unable to join lan multicast group", "group", c.opts.ScanAddress, "err", err)
		}
		if err := pc.SetMulticastLoopback(false); err != nil {
			c.logger.Debug("unable to disable multicast loopback", "err", err)
		}
	}

	sender, err := listenUDP(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("error opening lan scan socket: %w", err)
	}
	defer sender.Close()

	scanAddr, err := target{ip: c.opts.ScanAddress, port: c.opts.ScanPort}.addr()
	if err != nil {
		return nil, fmt.Errorf("invalid lan scan address %s: %w", c.opts.ScanAddress, err)
	}
	if _, err := sender.WriteToUDP(payload, scanAddr); err != nil {
		return nil, fmt.Errorf("error sending lan scan: %w", err)
	}
	c.logger.Debug("lan scan sent", "address", scanAddr.String())

	deadline := time.Now().Add(c.opts.DiscoveryTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := listener.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("error setting lan scan deadline: %w", err)
	}

	found := map[string]models.Device{}
	order := []string{}
	buf := make([]byte, maxDatagramSize)

	for {
		n, from, err := listener.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				break
			}
			return nil, fmt.Errorf("error reading lan scan replies: %w", err)
		}
		raw := buf[:n]

		device, ok := c.deviceFromReply(raw, payload, from)
		if !ok {
			continue
		}
		if _, seen := found[device.ID]; !seen {
			order = append(order, device.ID)
		}
		found[device.ID] = device
	}

	devices := make([]models.Device, 0, len(order))
	c.mu.Lock()
	for _, id := range order {
		d := found[id]
		devices = append(devices, d)
		c.devices[models.NormalizeID(d.ID)] = target{ip: d.LanIP, port: d.LanPort}
	}
	c.mu.Unlock()

	c.logger.Debug("lan scan complete", "devices", len(devices))
	return devices, nil
}

// listenUDP binds an ipv4 udp socket with SO_REUSEADDR, port 0 picks any free port
func listenUDP(ctx context.Context, port int) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	conn, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	udp, ok := conn.(*net.UDPConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("unexpected packet conn %T", conn)
	}
	return udp, nil
}

func (c *Client) deviceFromReply(raw []byte, scanPayload []byte, from *net.UDPAddr) (models.Device, bool) {
	cmd, data, root, err := decodeScanReply(raw)
	if err != nil {
		c.logger.Debug("ignoring undecodable lan reply", "from", from.String(), "err", err)
		return models.Device{}, false
	}
	if cmd == constants.LanCmdScan && bytes.Equal(raw, scanPayload) {
		c.logger.Debug("ignoring echo of lan scan", "from", from.String())
		return models.Device{}, false
	}

	id := firstNonEmpty(data.id(), root.Device, root.ID)
	if id == "" {
		return models.Device{}, false
	}

	ip := firstNonEmpty(data.IP, root.IP, from.IP.String())
	port, ok := data.port()
	if !ok {
		port = c.opts.ControlPort
	}
	sku := firstNonEmpty(data.SKU, root.SKU)

	return models.Device{
		ID:                id,
		Name:              firstNonEmpty(data.DeviceName, data.Name, data.SKU, root.Name, "Govee"),
		Model:             firstNonEmpty(data.Model, data.SKU, root.Model, "unknown"),
		SKU:               sku,
		LanIP:             ip,
		LanPort:           port,
		Source:            models.SourceLan,
		SupportedCommands: []string{"power"},
	}, true
}

func (c *Client) lookup(deviceID string) (target, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.devices[models.NormalizeID(deviceID)]
	if !ok {
		return target{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	return t, nil
}

// send is fire and forget, devices do not acknowledge control commands
func (c *Client) send(deviceID string, cmd string, data any) error {
	t, err := c.lookup(deviceID)
	if err != nil {
		return err
	}
	payload, err := encodeEnvelope(cmd, data)
	if err != nil {
		return err
	}
	addr, err := t.addr()
	if err != nil {
		return fmt.Errorf("invalid lan address for device (%s): %w", deviceID, err)
	}

	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return fmt.Errorf("error opening lan socket for device (%s): %w", deviceID, err)
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("error sending %s to device (%s): %w", cmd, deviceID, err)
	}
	c.logger.Debug("lan command sent", "device", deviceID, "cmd", cmd)
	return nil
}

func (c *Client) SetPower(_ context.Context, deviceID string, on bool) error {
	value := 0
	if on {
		value = 1
	}
	return c.send(deviceID, constants.LanCmdTurn, valueData{Value: value})
}

func (c *Client) SetBrightness(_ context.Context, deviceID string, level int) error {
	value := max(constants.LanMinBrightness, min(constants.LanMaxBrightness, level))
	return c.send(deviceID, constants.LanCmdBrightness, valueData{Value: value})
}

func (c *Client) SetColor(_ context.Context, deviceID string, color models.RGB) error {
	return c.send(deviceID, constants.LanCmdColor, colorData{
		Color: models.RGB{
			R: clampChannel(color.R),
			G: clampChannel(color.G),
			B: clampChannel(color.B),
		},
	})
}

func (c *Client) SetColorTemperature(_ context.Context, deviceID string, kelvin int) error {
	value := max(constants.LanMinKelvin, min(constants.LanMaxKelvin, kelvin))
	return c.send(deviceID, constants.LanCmdColor, colorData{ColorTemInKelvin: value})
}

// GetStatus asks the device for its current state and waits for a single reply
func (c *Client) GetStatus(_ context.Context, deviceID string) (Status, error) {
	t, err := c.lookup(deviceID)
	if err != nil {
		return Status{}, err
	}
	payload, err := encodeEnvelope(constants.LanCmdStatus, nil)
	if err != nil {
		return Status{}, err
	}
	addr, err := t.addr()
	if err != nil {
		return Status{}, fmt.Errorf("invalid lan address for device (%s): %w", deviceID, err)
	}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return Status{}, fmt.Errorf("error opening lan socket for device (%s): %w", deviceID, err)
	}
	defer conn.Close()

	if _, err := conn.WriteToUDP(payload, addr); err != nil {
		return Status{}, fmt.Errorf("error sending status request to device (%s): %w", deviceID, err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(c.opts.StatusTimeout)); err != nil {
		return Status{}, fmt.Errorf("error setting status deadline: %w", err)
	}

	buf := make([]byte, maxDatagramSize)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return Status{}, fmt.Errorf("%w: %s", ErrStatusTimeout, deviceID)
		}
		return Status{}, fmt.Errorf("error reading status from device (%s): %w", deviceID, err)
	}

	st, err := decodeStatus(buf[:n])
	if err != nil {
		return Status{}, fmt.Errorf("%w from device (%s): %v", ErrMalformedReply, deviceID, err)
	}
	return st, nil
}

func clampChannel(v int) int {
	return max(0, min(255, v))
}
