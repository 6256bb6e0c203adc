package influxdb_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/config"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "gatekeeper-dev-token",
		Org:           "gatekeeper",
		Bucket:        "access",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip connects to the local InfluxDB or skips the test.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		if os.Getenv("RUN_INTEGRATION") != "" {
			t.Fatalf("Connect() error = %v", err)
		}
		t.Skip("InfluxDB not available, skipping integration test")
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// captureErrors records asynchronous write errors.
func captureErrors(client *influxdb.Client) func() error {
	var (
		mu       sync.Mutex
		writeErr error
	)
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})
	return func() error {
		client.Flush()
		time.Sleep(100 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		return writeErr
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestZeroClient_WritesAreNoops(t *testing.T) {
	client := &influxdb.Client{}

	if client.IsConnected() {
		t.Error("IsConnected() = true for zero client")
	}

	// Must not panic.
	client.WriteAccessDecision("d1", "activate", "allowed", "open_access_mode", false, time.Now())
	client.WriteRelayTransition("d1", "open", time.Now())
	client.WritePoint("x", nil, map[string]interface{}{"v": 1})
	client.Flush()

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck(t *testing.T) {
	client := connectOrSkip(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestWriteAccessDecision(t *testing.T) {
	client := connectOrSkip(t)
	check := captureErrors(client)

	client.WriteAccessDecision("gate-test", "activate", "denied", "no_matching_user", false, time.Now())

	if err := check(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestWriteRelayTransition(t *testing.T) {
	client := connectOrSkip(t)
	check := captureErrors(client)

	client.WriteRelayTransition("gate-test", "open", time.Now())

	if err := check(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestWritePointWithTime(t *testing.T) {
	client := connectOrSkip(t)
	check := captureErrors(client)

	client.WritePointWithTime(
		"custom_measurement",
		map[string]string{"source": "test-with-time"},
		map[string]interface{}{"value": 88.8},
		time.Now().Add(-time.Hour),
	)

	if err := check(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestClose(t *testing.T) {
	client := connectOrSkip(t)

	client.WriteRelayTransition("close-test", "closed", time.Now())

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
