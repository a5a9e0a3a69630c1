// Package influxdb records firecracker transmitter telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Writes use the
// non-blocking batched write API; failures surface through SetOnError.
//
// Every frame sent to the transmitter becomes one firecracker_tx point
// tagged with house, unit, command and status.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteTransmission(influxdb.Transmission{House: "A", Unit: 1, On: true})
package influxdb
