package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementTransmission is the measurement every transmitted frame is
// recorded under.
const MeasurementTransmission = "firecracker_tx"

// Transmission describes one frame sent to the transmitter.
type Transmission struct {
	DeviceID string // empty for raw house/unit commands
	House    string // "A".."P"
	Unit     int    // 1..16
	On       bool
	Duration time.Duration
	Err      error
	At       time.Time
}

// WriteTransmission records a transmitted frame. Non-blocking; points are
// batched and sent by the write API.
//
// Tags: house, unit, command, status and device_id (when known).
// Fields: duration_ms and, on failure, error.
func (c *Client) WriteTransmission(tx Transmission) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(transmissionPoint(tx))
	c.written.Add(1)
}

func transmissionPoint(tx Transmission) *write.Point {
	command := "off"
	if tx.On {
		command = "on"
	}
	status := "ok"
	if tx.Err != nil {
		status = "failed"
	}

	tags := map[string]string{
		"house":   tx.House,
		"unit":    strconv.Itoa(tx.Unit),
		"command": command,
		"status":  status,
	}
	if tx.DeviceID != "" {
		tags["device_id"] = tx.DeviceID
	}

	fields := map[string]interface{}{
		"duration_ms": float64(tx.Duration) / float64(time.Millisecond),
	}
	if tx.Err != nil {
		fields["error"] = tx.Err.Error()
	}

	at := tx.At
	if at.IsZero() {
		at = time.Now()
	}

	return write.NewPoint(MeasurementTransmission, tags, fields, at)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Example:
//
//	client.WritePoint("bridge_stats",
//	    map[string]string{"bridge": "firecracker"},
//	    map[string]interface{}{"commands_sent": 42})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
	c.written.Add(1)
}
