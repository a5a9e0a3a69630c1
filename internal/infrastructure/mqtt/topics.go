package mqtt

import "strings"

// Topic layout: graylogic/{category}/{protocol}[/{address}]
//
// Client status topics live under graylogic/system/status/{client_id}.
const (
	// TopicRoot is the first segment of every topic.
	TopicRoot = "graylogic"

	categoryCommand = "command"
	categoryAck     = "ack"
	categoryState   = "state"
	categoryHealth  = "health"
	categorySystem  = "system"
)

// Topics builds the topic strings used between Core and the bridges.
type Topics struct{}

func joinTopic(parts ...string) string {
	return TopicRoot + "/" + strings.Join(parts, "/")
}

// BridgeState is where a bridge publishes device state (retained).
func (Topics) BridgeState(protocol, address string) string {
	return joinTopic(categoryState, protocol, address)
}

// BridgeCommand is where Core sends a command for one device.
func (Topics) BridgeCommand(protocol, address string) string {
	return joinTopic(categoryCommand, protocol, address)
}

// BridgeAck is where a bridge acknowledges a command.
func (Topics) BridgeAck(protocol, address string) string {
	return joinTopic(categoryAck, protocol, address)
}

// BridgeHealth is where a bridge publishes its health (retained).
func (Topics) BridgeHealth(protocol string) string {
	return joinTopic(categoryHealth, protocol)
}

// BridgeCommands matches every command topic of one bridge.
func (Topics) BridgeCommands(protocol string) string {
	return joinTopic(categoryCommand, protocol, "+")
}

// ClientStatus is the online/offline topic of one MQTT client. The broker
// publishes the client's Last Will here.
func (Topics) ClientStatus(clientID string) string {
	return joinTopic(categorySystem, "status", clientID)
}
