package main

import (
	"context"

	"github.com/nerrad567/gray-logic-firecracker/internal/bridges/firecracker"
	"github.com/nerrad567/gray-logic-firecracker/internal/device"
	"github.com/nerrad567/gray-logic-firecracker/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-firecracker/internal/infrastructure/mqtt"
)

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. Infrastructure handlers return an error; bridge
// handlers don't.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements firecracker.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements firecracker.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// Unsubscribe implements firecracker.MQTTClient.
func (a *mqttBridgeAdapter) Unsubscribe(topic string) error {
	return a.client.Unsubscribe(topic)
}

// IsConnected implements firecracker.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// deviceStore is the part of *device.Registry the resolver needs.
type deviceStore interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	ListDevices(ctx context.Context) ([]device.Device, error)
}

// registryResolver adapts the device registry to firecracker.DeviceResolver.
type registryResolver struct {
	registry deviceStore
}

// ResolveDevice implements firecracker.DeviceResolver.
func (r registryResolver) ResolveDevice(ctx context.Context, id string) (firecracker.DeviceAddress, error) {
	d, err := r.registry.GetDevice(ctx, id)
	if err != nil {
		return firecracker.DeviceAddress{}, err
	}
	return toAddress(*d), nil
}

// ListDevices implements firecracker.DeviceResolver.
func (r registryResolver) ListDevices(ctx context.Context) ([]firecracker.DeviceAddress, error) {
	devices, err := r.registry.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]firecracker.DeviceAddress, 0, len(devices))
	for _, d := range devices {
		out = append(out, toAddress(d))
	}
	return out, nil
}

func toAddress(d device.Device) firecracker.DeviceAddress {
	return firecracker.DeviceAddress{ID: d.ID, Name: d.Name, House: d.House, Unit: d.Unit}
}

// transmissionWriter is the part of *influxdb.Client telemetry needs.
type transmissionWriter interface {
	WriteTransmission(tx influxdb.Transmission)
}

// influxTelemetry adapts the InfluxDB client to firecracker.TelemetryRecorder.
type influxTelemetry struct {
	client transmissionWriter
}

// RecordTransmission implements firecracker.TelemetryRecorder.
func (t influxTelemetry) RecordTransmission(rec firecracker.TransmissionRecord) {
	t.client.WriteTransmission(influxdb.Transmission{
		DeviceID: rec.DeviceID,
		House:    rec.House,
		Unit:     rec.Unit,
		On:       rec.On,
		Duration: rec.Duration,
		Err:      rec.Err,
		At:       rec.At,
	})
}
