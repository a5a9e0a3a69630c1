package firecracker

import (
	"time"

	"github.com/nerrad567/gray-logic-firecracker/internal/infrastructure/mqtt"
)

// Protocol is the protocol segment of every firecracker MQTT topic.
const Protocol = "firecracker"

// Topic helpers. Address is the device ID, or the X10 address ("A1") for
// commands sent without a registered device.

// CommandSubscribeTopic returns the subscription pattern for all commands.
// Pattern: graylogic/command/firecracker/+
func CommandSubscribeTopic() string {
	return mqtt.Topics{}.BridgeCommands(Protocol)
}

// AckTopic returns the topic for command acknowledgements.
// Example: graylogic/ack/firecracker/lamp-lounge
func AckTopic(address string) string {
	return mqtt.Topics{}.BridgeAck(Protocol, address)
}

// StateTopic returns the topic for device state.
// Example: graylogic/state/firecracker/lamp-lounge
func StateTopic(address string) string {
	return mqtt.Topics{}.BridgeState(Protocol, address)
}

// HealthTopic returns the topic for bridge health.
// Example: graylogic/health/firecracker
func HealthTopic() string {
	return mqtt.Topics{}.BridgeHealth(Protocol)
}

// CommandMessage is sent from Core to the bridge.
// Topic: graylogic/command/firecracker/{device_id}
//
// Parameters may carry "house" ("A".."P") and "unit" (1..16) to address a
// module that is not in the device registry.
type CommandMessage struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	DeviceID   string         `json:"device_id"`
	Command    string         `json:"command"` // "on" or "off"
	Parameters map[string]any `json:"parameters,omitempty"`
	Source     string         `json:"source,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
}

// AckStatus represents the acknowledgement status of a command.
type AckStatus string

const (
	// AckQueued means the command is waiting for the transmitter.
	AckQueued AckStatus = "queued"

	// AckAccepted means the frame was sent. X10 is one-way, so this is the
	// strongest confirmation available.
	AckAccepted AckStatus = "accepted"

	// AckFailed means the command could not be sent.
	AckFailed AckStatus = "failed"

	// AckTimeout means the transmitter was busy for too long.
	AckTimeout AckStatus = "timeout"
)

// AckMessage acknowledges a command.
// Topic: graylogic/ack/firecracker/{address}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id,omitempty"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`
	Address   string    `json:"address"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeProtocolError     = "PROTOCOL_ERROR"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// StateMessage reports the last state commanded for a module.
// Topic: graylogic/state/firecracker/{address}
// QoS: 1, Retained: Yes
type StateMessage struct {
	DeviceID  string         `json:"device_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	State     map[string]any `json:"state"`
	Protocol  string         `json:"protocol"`
	Address   string         `json:"address"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthStarting  HealthStatus = "starting"
	HealthStopping  HealthStatus = "stopping"
)

// HealthMessage reports bridge status.
// Topic: graylogic/health/firecracker
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge         string            `json:"bridge"`
	Timestamp      time.Time         `json:"timestamp"`
	Status         HealthStatus      `json:"status"`
	Version        string            `json:"version"`
	UptimeSeconds  int64             `json:"uptime_seconds"`
	Connection     *ConnectionStatus `json:"connection,omitempty"`
	Statistics     *BridgeStatistics `json:"statistics,omitempty"`
	DevicesManaged int               `json:"devices_managed"`
	Reason         string            `json:"reason,omitempty"`
}

// ConnectionStatus describes the serial port.
type ConnectionStatus struct {
	Status string `json:"status"` // "open" or "closed"
	Port   string `json:"port"`
}

// BridgeStatistics contains transmission counters.
type BridgeStatistics struct {
	FramesSent   uint64     `json:"frames_sent"`
	FramesFailed uint64     `json:"frames_failed"`
	BitsSent     uint64     `json:"bits_sent"`
	EngineState  string     `json:"engine_state"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// NewAckMessage creates an acknowledgement for a command.
func NewAckMessage(cmd CommandMessage, status AckStatus, address string) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    status,
		Protocol:  Protocol,
		Address:   address,
	}
}

// NewAckError creates a failed acknowledgement. TIMEOUT maps to AckTimeout.
func NewAckError(cmd CommandMessage, address, code, message string) AckMessage {
	status := AckFailed
	if code == ErrCodeTimeout {
		status = AckTimeout
	}
	ack := NewAckMessage(cmd, status, address)
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}

// NewStateMessage creates the retained state message for a module.
func NewStateMessage(deviceID, address string, on bool) StateMessage {
	return StateMessage{
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
		State:     map[string]any{"on": on},
		Protocol:  Protocol,
		Address:   address,
	}
}

// NewHealthMessage creates a health message from session state.
func NewHealthMessage(bridgeID, version string, status HealthStatus, portName string, open bool, stats EngineStats, deviceCount int, startTime time.Time) HealthMessage {
	conn := &ConnectionStatus{Status: "closed", Port: portName}
	if open {
		conn.Status = "open"
	}

	bs := &BridgeStatistics{
		FramesSent:   stats.FramesSent,
		FramesFailed: stats.FramesFailed,
		BitsSent:     stats.BitsSent,
		EngineState:  stats.State.String(),
	}
	if !stats.LastActivity.IsZero() {
		t := stats.LastActivity.UTC()
		bs.LastActivity = &t
	}

	return HealthMessage{
		Bridge:         bridgeID,
		Timestamp:      time.Now().UTC(),
		Status:         status,
		Version:        version,
		UptimeSeconds:  int64(time.Since(startTime).Seconds()),
		Connection:     conn,
		Statistics:     bs,
		DevicesManaged: deviceCount,
	}
}
