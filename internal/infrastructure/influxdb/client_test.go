package influxdb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-firecracker/internal/infrastructure/config"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "graylogic-dev-token",
		Org:           "graylogic",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// skipIfNoInfluxDB skips the test if InfluxDB is not running.
func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping InfluxDB test in short mode")
	}
	if os.Getenv("RUN_INTEGRATION") == "" {
		client, err := Connect(context.Background(), testConfig())
		if err != nil {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		client.Close()
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := Connect(context.Background(), cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Connect(ctx, testConfig())
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestBatchSettings(t *testing.T) {
	tests := []struct {
		name          string
		batch, flush  int
		wantBatch     int
		wantFlushSecs int
	}{
		{"configured", 50, 2, 50, 2},
		{"zero uses defaults", 0, 0, 100, 10},
		{"negative uses defaults", -5, -1, 100, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.BatchSize = tt.batch
			cfg.FlushInterval = tt.flush
			b, f := batchSettings(cfg)
			if b != tt.wantBatch || f != tt.wantFlushSecs {
				t.Errorf("batchSettings() = (%d, %d), want (%d, %d)", b, f, tt.wantBatch, tt.wantFlushSecs)
			}
		})
	}
}

func TestTransmissionPoint(t *testing.T) {
	at := time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC)

	t.Run("successful on", func(t *testing.T) {
		p := transmissionPoint(Transmission{
			DeviceID: "lamp-lounge",
			House:    "A",
			Unit:     12,
			On:       true,
			Duration: 84 * time.Millisecond,
			At:       at,
		})

		if p.Name() != MeasurementTransmission {
			t.Errorf("Name() = %q, want %q", p.Name(), MeasurementTransmission)
		}
		if !p.Time().Equal(at) {
			t.Errorf("Time() = %v, want %v", p.Time(), at)
		}

		tags := map[string]string{}
		for _, tag := range p.TagList() {
			tags[tag.Key] = tag.Value
		}
		want := map[string]string{"house": "A", "unit": "12", "command": "on", "status": "ok", "device_id": "lamp-lounge"}
		for k, v := range want {
			if tags[k] != v {
				t.Errorf("tag %s = %q, want %q", k, tags[k], v)
			}
		}

		fields := map[string]interface{}{}
		for _, f := range p.FieldList() {
			fields[f.Key] = f.Value
		}
		if fields["duration_ms"] != float64(84) {
			t.Errorf("duration_ms = %v, want 84", fields["duration_ms"])
		}
		if _, ok := fields["error"]; ok {
			t.Error("unexpected error field on success")
		}
	})

	t.Run("failed off without device", func(t *testing.T) {
		p := transmissionPoint(Transmission{
			House: "P",
			Unit:  3,
			Err:   errors.New("line failure"),
		})

		tags := map[string]string{}
		for _, tag := range p.TagList() {
			tags[tag.Key] = tag.Value
		}
		if tags["command"] != "off" || tags["status"] != "failed" {
			t.Errorf("tags = %v, want command=off status=failed", tags)
		}
		if _, ok := tags["device_id"]; ok {
			t.Error("device_id tag should be omitted for raw commands")
		}

		var gotErr interface{}
		for _, f := range p.FieldList() {
			if f.Key == "error" {
				gotErr = f.Value
			}
		}
		if gotErr != "line failure" {
			t.Errorf("error field = %v, want %q", gotErr, "line failure")
		}
		if p.Time().IsZero() {
			t.Error("zero At should default to now")
		}
	})
}

func TestNilClient(t *testing.T) {
	var c *Client

	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
	c.WriteTransmission(Transmission{House: "A", Unit: 1})
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
	if got := c.Stats(); got != (Stats{}) {
		t.Errorf("Stats() = %+v, want zero", got)
	}
}

func TestWriteTransmission_Live(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var asyncErr error
	client.SetOnError(func(err error) { asyncErr = err })

	client.WriteTransmission(Transmission{House: "B", Unit: 2, On: true, Duration: time.Millisecond})
	client.Flush()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if asyncErr != nil {
		t.Errorf("async write error = %v", asyncErr)
	}
	if got := client.Stats().PointsQueued; got != 1 {
		t.Errorf("Stats().PointsQueued = %d, want 1", got)
	}

	client.Close()
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
	client.WriteTransmission(Transmission{House: "B", Unit: 2})
	if got := client.Stats().PointsQueued; got != 1 {
		t.Errorf("Stats().PointsQueued after Close = %d, want 1", got)
	}
}
