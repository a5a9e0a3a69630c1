package firecracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-firecracker/internal/infrastructure/config"
)

const (
	// minTopicParts is the minimum number of parts in a valid MQTT topic.
	minTopicParts = 3

	// commandQueueSize bounds MQTT commands waiting for the transmitter.
	commandQueueSize = 64

	// DefaultCommandTimeout bounds how long a command waits for the
	// transmitter when none is configured.
	DefaultCommandTimeout = 10 * time.Second
)

// Bridge connects the transmitter to Gray Logic Core.
//
// Commands arrive over MQTT (graylogic/command/firecracker/{device_id}) or
// through Execute, are resolved to an X10 address and sent as one frame.
// MQTT commands are acknowledged on the ack topic and a successful send
// publishes the commanded state, retained, on the state topic. X10 has no
// return path, so state is what was last sent, not what the module did.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	cfg       config.FirecrackerConfig
	bridgeID  string
	mqtt      MQTTClient
	session   *Session
	resolver  DeviceResolver
	telemetry TelemetryRecorder
	health    *HealthReporter

	queue chan queuedCommand

	commandsReceived atomic.Uint64
	commandsRejected atomic.Uint64

	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context    // cancelled on Stop
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

// MQTTClient is the part of the MQTT client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// DeviceAddress maps a registered device to its X10 address.
type DeviceAddress struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	House string `json:"house"` // "A".."P"
	Unit  int    `json:"unit"`  // 1..16
}

// DeviceResolver looks up registered devices.
// Satisfied by *device.Registry via an adapter in main.
type DeviceResolver interface {
	ResolveDevice(ctx context.Context, id string) (DeviceAddress, error)
	ListDevices(ctx context.Context) ([]DeviceAddress, error)
}

// TransmissionRecord describes one attempted frame.
type TransmissionRecord struct {
	DeviceID string
	House    string
	Unit     int
	On       bool
	Duration time.Duration
	Err      error
	At       time.Time
}

// TelemetryRecorder receives a record for every attempted frame.
// Implementations must not block.
type TelemetryRecorder interface {
	RecordTransmission(rec TransmissionRecord)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Config is the firecracker protocol section. Required.
	Config *config.FirecrackerConfig

	// BridgeID names the bridge in health messages. Default: "firecracker"
	BridgeID string

	// Version is reported in health messages.
	Version string

	// Session owns the transmitter. Required.
	Session *Session

	// MQTTClient is optional; without it only Execute accepts commands.
	MQTTClient MQTTClient

	// Resolver is optional; without it only explicit addresses work.
	Resolver DeviceResolver

	// Telemetry is optional.
	Telemetry TelemetryRecorder

	// Logger is optional.
	Logger Logger
}

// CommandRequest is a single on/off request.
// DeviceID is resolved through the registry; when it is empty House and
// Unit address the module directly.
type CommandRequest struct {
	ID       string
	DeviceID string
	House    string
	Unit     int
	On       bool
	Source   string
}

// CommandResult describes a frame that was sent.
type CommandResult struct {
	ID       string        `json:"id"`
	DeviceID string        `json:"device_id,omitempty"`
	Address  string        `json:"address"`
	On       bool          `json:"on"`
	Duration time.Duration `json:"duration_ns"`
	SentAt   time.Time     `json:"sent_at"`
}

type queuedCommand struct {
	cmd     CommandMessage
	req     CommandRequest
	address string
}

// NewBridge creates a bridge. Call Start to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Session == nil {
		return nil, fmt.Errorf("session is required")
	}

	bridgeID := opts.BridgeID
	if bridgeID == "" {
		bridgeID = Protocol
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		cfg:       *opts.Config,
		bridgeID:  bridgeID,
		mqtt:      opts.MQTTClient,
		session:   opts.Session,
		resolver:  opts.Resolver,
		telemetry: opts.Telemetry,
		queue:     make(chan queuedCommand, commandQueueSize),
		done:      make(chan struct{}),
		ctx:       ctx,
		ctxCancel: ctxCancel,
		logger:    opts.Logger,
	}

	var publisher HealthPublisher
	if opts.MQTTClient != nil {
		publisher = opts.MQTTClient
	}
	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:    bridgeID,
		Version:     opts.Version,
		Interval:    opts.Config.HealthInterval,
		Publisher:   publisher,
		Transmitter: opts.Session,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start opens the configured port if the session holds none, subscribes
// to commands and starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	if !b.session.IsOpen() {
		if err := b.session.Open(ctx, b.cfg.Port); err != nil {
			return fmt.Errorf("open transmitter: %w", err)
		}
	}

	devices := b.refreshDeviceCount(ctx)

	b.wg.Add(1)
	go b.commandWorker()

	if b.mqtt != nil {
		topic := CommandSubscribeTopic()
		if err := b.mqtt.Subscribe(topic, 1, b.handleMQTTMessage); err != nil {
			return fmt.Errorf("subscribe to commands: %w", err)
		}
		b.logInfo("subscribed to commands", "topic", topic)
	}

	b.health.Start(ctx)

	b.logInfo("bridge started",
		"bridge_id", b.bridgeID,
		"port", b.session.PortName(),
		"devices", devices)

	return nil
}

// Stop drops queued MQTT commands, lets an in-flight frame finish and
// closes the port. Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.ctxCancel()

		b.wg.Wait()

		if b.mqtt != nil && b.mqtt.IsConnected() {
			if err := b.mqtt.Unsubscribe(CommandSubscribeTopic()); err != nil {
				b.logError("failed to unsubscribe from commands", err)
			}
		}
		b.health.Stop()

		//nolint:contextcheck // shutdown must outlive the cancelled bridge context
		if err := b.session.Close(context.Background()); err != nil {
			b.logError("failed to close transmitter", err)
		}

		b.logInfo("bridge stopped")
	})
}

// refreshDeviceCount updates the device count reported in health messages.
func (b *Bridge) refreshDeviceCount(ctx context.Context) int {
	if b.resolver == nil {
		return 0
	}
	devices, err := b.resolver.ListDevices(ctx)
	if err != nil {
		b.logError("failed to list devices", err)
		return 0
	}
	b.health.SetDeviceCount(len(devices))
	return len(devices)
}

// frameAttempted reports whether SendCommand got as far as the lines.
// Validation failures, a closed port and an abandoned wait for the
// transmit token never touch them.
func frameAttempted(err error) bool {
	return err == nil || errors.Is(err, ErrTransportSetLines)
}

// Execute resolves req to an X10 address and sends one frame.
//
// The wait for the transmitter is bounded by the configured command
// timeout. On success the commanded state is published (when MQTT is
// configured). A telemetry record is written for every frame that reached
// the lines, whether it completed or failed part way.
func (b *Bridge) Execute(ctx context.Context, req CommandRequest) (CommandResult, error) {
	house, module, err := b.resolve(ctx, req)
	if err != nil {
		return CommandResult{}, err
	}
	address := Address(house, module)

	timeout := b.cfg.CommandTimeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err = b.session.SendCommand(sendCtx, house, module, req.On)
	duration := time.Since(start)

	if b.telemetry != nil && frameAttempted(err) {
		b.telemetry.RecordTransmission(TransmissionRecord{
			DeviceID: req.DeviceID,
			House:    HouseLetter(house),
			Unit:     module + 1,
			On:       req.On,
			Duration: duration,
			Err:      err,
			At:       start,
		})
	}

	if err != nil {
		return CommandResult{}, err
	}

	b.publishState(req.DeviceID, address, req.On)

	b.logInfo("command sent",
		"command_id", req.ID,
		"device_id", req.DeviceID,
		"address", address,
		"on", req.On,
		"source", req.Source)

	return CommandResult{
		ID:       req.ID,
		DeviceID: req.DeviceID,
		Address:  address,
		On:       req.On,
		Duration: duration,
		SentAt:   start.UTC(),
	}, nil
}

// resolve returns the table indices for req.
func (b *Bridge) resolve(ctx context.Context, req CommandRequest) (house, module int, err error) {
	letter, unit := req.House, req.Unit

	if req.DeviceID != "" && letter == "" {
		if b.resolver == nil {
			return 0, 0, fmt.Errorf("%w: %s", ErrUnknownDevice, req.DeviceID)
		}
		dev, err := b.resolver.ResolveDevice(ctx, req.DeviceID)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %s: %w", ErrUnknownDevice, req.DeviceID, err)
		}
		letter, unit = dev.House, dev.Unit
	}

	house, err = ParseHouse(letter)
	if err != nil {
		return 0, 0, err
	}
	module, err = ParseModule(strconv.Itoa(unit))
	if err != nil {
		return 0, 0, err
	}
	return house, module, nil
}

// handleMQTTMessage routes incoming MQTT messages.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) < minTopicParts {
		b.logError("invalid topic format", fmt.Errorf("topic: %s", topic))
		return
	}

	switch parts[1] {
	case "command":
		b.handleCommand(parts[len(parts)-1], payload)
	default:
		b.logError("unknown message type", fmt.Errorf("type: %s", parts[1]))
	}
}

// handleCommand validates a command and queues it for the worker. The paho
// router goroutine never waits on the transmitter.
func (b *Bridge) handleCommand(topicAddress string, payload []byte) {
	b.commandsReceived.Add(1)

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.commandsRejected.Add(1)
		b.logError("failed to parse command", err)
		return
	}
	if cmd.DeviceID == "" {
		cmd.DeviceID = topicAddress
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"command", cmd.Command)

	req, err := commandRequest(cmd)
	if err != nil {
		b.commandsRejected.Add(1)
		b.publishAckError(cmd, cmd.DeviceID, errorCode(err), err.Error())
		return
	}

	address := cmd.DeviceID
	if address == "" {
		address = req.House + strconv.Itoa(req.Unit)
	}

	select {
	case b.queue <- queuedCommand{cmd: cmd, req: req, address: address}:
		b.publishAck(cmd, address, AckQueued)
	case <-b.done:
		b.commandsRejected.Add(1)
		b.publishAckError(cmd, address, ErrCodeBridgeError, "bridge stopping")
	default:
		b.commandsRejected.Add(1)
		b.publishAckError(cmd, address, ErrCodeBridgeError, "command queue full")
	}
}

// commandWorker sends queued MQTT commands one at a time.
func (b *Bridge) commandWorker() {
	defer b.wg.Done()

	for {
		select {
		case <-b.done:
			return
		case qc := <-b.queue:
			if _, err := b.Execute(b.ctx, qc.req); err != nil {
				b.commandsRejected.Add(1)
				b.logError("command execution failed", err)
				b.publishAckError(qc.cmd, qc.address, errorCode(err), err.Error())
				continue
			}
			b.publishAck(qc.cmd, qc.address, AckAccepted)
		}
	}
}

// commandRequest converts an MQTT command to a request. Explicit "house"
// and "unit" parameters take precedence over the registry.
func commandRequest(cmd CommandMessage) (CommandRequest, error) {
	req := CommandRequest{
		ID:       cmd.ID,
		DeviceID: cmd.DeviceID,
		Source:   cmd.Source,
	}

	switch strings.ToLower(cmd.Command) {
	case "on":
		req.On = true
	case "off":
		req.On = false
	default:
		return CommandRequest{}, fmt.Errorf("%w: %q", ErrInvalidCommand, cmd.Command)
	}

	if h, ok := cmd.Parameters["house"]; ok {
		letter, ok := h.(string)
		if !ok {
			return CommandRequest{}, fmt.Errorf("%w: %v", ErrInvalidHouse, h)
		}
		req.House = strings.ToUpper(letter)
		unit, err := unitParameter(cmd.Parameters["unit"])
		if err != nil {
			return CommandRequest{}, err
		}
		req.Unit = unit
	} else if req.DeviceID == "" {
		return CommandRequest{}, fmt.Errorf("%w: no device_id or house/unit", ErrUnknownDevice)
	}

	return req, nil
}

// unitParameter accepts a JSON number or numeric string.
func unitParameter(v any) (int, error) {
	switch u := v.(type) {
	case float64:
		if u != float64(int(u)) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidModule, u)
		}
		return int(u), nil
	case string:
		n, err := strconv.Atoi(u)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidModule, u)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidModule, v)
	}
}

// errorCode maps an execution error to an ack error code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownDevice):
		return ErrCodeNotConfigured
	case errors.Is(err, ErrInvalidCommand):
		return ErrCodeInvalidCommand
	case errors.Is(err, ErrInvalidHouse), errors.Is(err, ErrInvalidModule):
		return ErrCodeInvalidParameters
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, ErrNotOpen):
		return ErrCodeDeviceUnreachable
	case errors.Is(err, ErrTransportSetLines):
		return ErrCodeProtocolError
	default:
		return ErrCodeBridgeError
	}
}

func (b *Bridge) publishAck(cmd CommandMessage, address string, status AckStatus) {
	b.publishJSON(AckTopic(address), NewAckMessage(cmd, status, address), false)
}

func (b *Bridge) publishAckError(cmd CommandMessage, address, code, message string) {
	b.publishJSON(AckTopic(address), NewAckError(cmd, address, code, message), false)
}

func (b *Bridge) publishState(deviceID, address string, on bool) {
	key := deviceID
	if key == "" {
		key = address
	}
	b.publishJSON(StateTopic(key), NewStateMessage(deviceID, address, on), true)
}

// publishJSON publishes v with QoS 1. Without an MQTT client it is a no-op.
func (b *Bridge) publishJSON(topic string, v any, retained bool) {
	if b.mqtt == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		b.logError("failed to marshal message", err)
		return
	}
	if err := b.mqtt.Publish(topic, payload, 1, retained); err != nil {
		b.logError("failed to publish", err)
	}
}

// Devices returns the registered devices, or nil without a resolver.
func (b *Bridge) Devices(ctx context.Context) ([]DeviceAddress, error) {
	if b.resolver == nil {
		return nil, nil
	}
	return b.resolver.ListDevices(ctx)
}

// Health returns the current health message.
func (b *Bridge) Health() HealthMessage {
	return b.health.Current()
}

// SetLogger sets the logger for the bridge and its session.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	b.health.SetLogger(logger)
	b.session.SetLogger(logger)
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

// BridgeMetrics contains counters for the API health endpoint.
type BridgeMetrics struct {
	PortOpen         bool   `json:"port_open"`
	Port             string `json:"port"`
	EngineState      string `json:"engine_state"`
	FramesSent       uint64 `json:"frames_sent"`
	FramesFailed     uint64 `json:"frames_failed"`
	BitsSent         uint64 `json:"bits_sent"`
	CommandsReceived uint64 `json:"commands_received"`
	CommandsRejected uint64 `json:"commands_rejected"`
}

// GetMetrics returns current bridge metrics.
func (b *Bridge) GetMetrics() BridgeMetrics {
	stats := b.session.Stats()
	return BridgeMetrics{
		PortOpen:         b.session.IsOpen(),
		Port:             b.session.PortName(),
		EngineState:      stats.State.String(),
		FramesSent:       stats.FramesSent,
		FramesFailed:     stats.FramesFailed,
		BitsSent:         stats.BitsSent,
		CommandsReceived: b.commandsReceived.Load(),
		CommandsRejected: b.commandsRejected.Load(),
	}
}
