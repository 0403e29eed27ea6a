package curtain

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestNewHealthReporter(t *testing.T) {
	mqtt := NewMockMQTTClient()
	ctrl := NewMockController()

	hr := NewHealthReporter(HealthReporterConfig{
		BridgeID:   "curtain",
		Version:    "1.0.0",
		HubAddress: "192.0.2.10:32",
		Interval:   5 * time.Second,
		Publisher:  mqtt,
		Controller: ctrl,
	})

	if hr.bridgeID != "curtain" {
		t.Errorf("bridgeID = %q, want curtain", hr.bridgeID)
	}
	if hr.version != "1.0.0" {
		t.Errorf("version = %q, want 1.0.0", hr.version)
	}
	if hr.interval != 5*time.Second {
		t.Errorf("interval = %v, want 5s", hr.interval)
	}
}

func TestHealthReporterDefaultInterval(t *testing.T) {
	hr := NewHealthReporter(HealthReporterConfig{
		BridgeID: "curtain",
		// Interval not set, should default to 30 seconds
	})

	if hr.interval != 30*time.Second {
		t.Errorf("default interval = %v, want 30s", hr.interval)
	}
}

func TestHealthReporterPublishNow(t *testing.T) {
	mqtt := NewMockMQTTClient()
	ctrl := NewMockController()
	ctrl.SimulateStatus(0x0001, 50)
	ctrl.SimulateStatus(0x0002, 0)

	hr := NewHealthReporter(HealthReporterConfig{
		BridgeID:   "curtain",
		Version:    "2.0.0",
		HubAddress: "192.0.2.10:32",
		Publisher:  mqtt,
		Controller: ctrl,
	})

	if err := hr.PublishNow(); err != nil {
		t.Fatalf("PublishNow failed: %v", err)
	}

	messages := mqtt.GetPublished()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	msg := messages[0]
	if msg.Topic != "slatehome/health/curtain" {
		t.Errorf("topic = %q, want slatehome/health/curtain", msg.Topic)
	}
	if msg.QoS != 1 {
		t.Errorf("qos = %d, want 1", msg.QoS)
	}
	if !msg.Retained {
		t.Error("message should be retained")
	}

	// Parse and verify content
	var health HealthMessage
	if err := json.Unmarshal(msg.Payload, &health); err != nil {
		t.Fatalf("failed to unmarshal health message: %v", err)
	}

	if health.Bridge != "curtain" {
		t.Errorf("Bridge = %q, want curtain", health.Bridge)
	}
	if health.Status != HealthHealthy {
		t.Errorf("Status = %q, want %q", health.Status, HealthHealthy)
	}
	if health.Version != "2.0.0" {
		t.Errorf("Version = %q, want 2.0.0", health.Version)
	}
	if health.DevicesManaged != 2 {
		t.Errorf("DevicesManaged = %d, want 2", health.DevicesManaged)
	}
	if health.Connection == nil || health.Connection.Address != "192.0.2.10:32" {
		t.Errorf("Connection = %+v, want address 192.0.2.10:32", health.Connection)
	}
}

func TestHealthReporterDegradedWhenHubDisconnected(t *testing.T) {
	mqtt := NewMockMQTTClient()
	ctrl := NewMockController()
	ctrl.SetConnected(false)

	hr := NewHealthReporter(HealthReporterConfig{
		BridgeID:   "curtain",
		Publisher:  mqtt,
		Controller: ctrl,
	})

	if err := hr.PublishNow(); err != nil {
		t.Fatalf("PublishNow failed: %v", err)
	}

	messages := mqtt.GetPublished()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var health HealthMessage
	if err := json.Unmarshal(messages[0].Payload, &health); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if health.Status != HealthDegraded {
		t.Errorf("Status = %q, want %q (hub disconnected)", health.Status, HealthDegraded)
	}
	if health.Reason != "hub disconnected" {
		t.Errorf("Reason = %q, want 'hub disconnected'", health.Reason)
	}
}

func TestHealthReporterDegradedWhenMQTTDisconnected(t *testing.T) {
	mqtt := NewMockMQTTClient()
	mqtt.SetConnected(false)
	ctrl := NewMockController()

	hr := NewHealthReporter(HealthReporterConfig{
		BridgeID:   "curtain",
		Publisher:  mqtt,
		Controller: ctrl,
	})

	// Determine status without publishing (since MQTT is down)
	status, reason := hr.determineStatus()

	if status != HealthDegraded {
		t.Errorf("Status = %q, want %q", status, HealthDegraded)
	}
	if reason != "MQTT disconnected" {
		t.Errorf("Reason = %q, want 'MQTT disconnected'", reason)
	}
}

func TestHealthReporterPublishStarting(t *testing.T) {
	mqtt := NewMockMQTTClient()

	hr := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "curtain",
		Publisher: mqtt,
	})

	if err := hr.PublishStarting(); err != nil {
		t.Fatalf("PublishStarting failed: %v", err)
	}

	messages := mqtt.GetPublished()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var health HealthMessage
	if err := json.Unmarshal(messages[0].Payload, &health); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if health.Status != HealthStarting {
		t.Errorf("Status = %q, want %q", health.Status, HealthStarting)
	}
}

func TestHealthReporterGetLWT(t *testing.T) {
	hr := NewHealthReporter(HealthReporterConfig{
		BridgeID: "curtain",
	})

	topic := hr.GetLWTTopic()
	if topic != "slatehome/health/curtain" {
		t.Errorf("LWT topic = %q, want slatehome/health/curtain", topic)
	}

	payload, err := hr.GetLWTPayload()
	if err != nil {
		t.Fatalf("GetLWTPayload failed: %v", err)
	}

	var health HealthMessage
	if err := json.Unmarshal(payload, &health); err != nil {
		t.Fatalf("failed to unmarshal LWT: %v", err)
	}

	if health.Bridge != "curtain" {
		t.Errorf("LWT Bridge = %q, want curtain", health.Bridge)
	}
	if health.Status != HealthOffline {
		t.Errorf("LWT Status = %q, want %q", health.Status, HealthOffline)
	}
	if health.Reason != "unexpected_disconnect" {
		t.Errorf("LWT Reason = %q, want unexpected_disconnect", health.Reason)
	}
}

func TestHealthReporterStartStop(t *testing.T) {
	mqtt := NewMockMQTTClient()
	ctrl := NewMockController()

	hr := NewHealthReporter(HealthReporterConfig{
		BridgeID:   "curtain",
		Interval:   50 * time.Millisecond, // Short interval for testing
		Publisher:  mqtt,
		Controller: ctrl,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hr.Start(ctx)

	// Wait for at least 2 health reports
	time.Sleep(150 * time.Millisecond)

	hr.Stop()

	messages := mqtt.GetPublished()
	// Should have: initial + at least 2 periodic + stopping
	if len(messages) < 3 {
		t.Errorf("expected at least 3 messages, got %d", len(messages))
	}

	// Verify last message is stopping
	var lastHealth HealthMessage
	if err := json.Unmarshal(messages[len(messages)-1].Payload, &lastHealth); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if lastHealth.Status != HealthStopping {
		t.Errorf("last Status = %q, want %q", lastHealth.Status, HealthStopping)
	}

	// Double-stop should not panic or publish twice
	before := len(mqtt.GetPublished())
	hr.Stop()
	if after := len(mqtt.GetPublished()); after != before {
		t.Errorf("second Stop published %d more messages", after-before)
	}
}

func TestHealthReporterWithNoPublisher(t *testing.T) {
	hr := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "curtain",
		Publisher: nil, // No publisher
	})

	// Should not panic or error
	if err := hr.PublishNow(); err != nil {
		t.Errorf("PublishNow with nil publisher should not error: %v", err)
	}
}

func TestHealthReporterUptime(t *testing.T) {
	mqtt := NewMockMQTTClient()

	hr := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "curtain",
		Publisher: mqtt,
	})

	time.Sleep(100 * time.Millisecond)

	if err := hr.PublishNow(); err != nil {
		t.Fatalf("PublishNow failed: %v", err)
	}

	messages := mqtt.GetPublished()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var health HealthMessage
	if err := json.Unmarshal(messages[0].Payload, &health); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if health.UptimeSeconds < 0 {
		t.Errorf("UptimeSeconds = %d, should be >= 0", health.UptimeSeconds)
	}
}
