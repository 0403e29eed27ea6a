package curtain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MQTT message types for communication between the Slate Home core and the
// curtain bridge.

// CommandMessage is sent from Core to Bridge to execute a curtain command.
// Topic: slatehome/command/curtain/{address}
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with acknowledgments.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the Slate Home device identifier.
	DeviceID string `json:"device_id"`

	// Command is the command name: "open", "close", "stop", "set_position",
	// or "probe".
	Command string `json:"command"`

	// Parameters contains command-specific values.
	// Example: {"position": 75} for set_position.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated.
	// Values: "api", "automation", "voice", "scene"
	Source string `json:"source"`

	// UserID is the user who triggered the command (if applicable).
	UserID string `json:"user_id,omitempty"`
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was encoded and written to the hub.
	// There is no device-level acknowledgment on this link; the device
	// reports its resulting position via the normal state path.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be sent.
	AckFailed AckStatus = "failed"
)

// AckMessage is sent from Bridge to Core to acknowledge a command.
// Topic: slatehome/ack/curtain/{address}
type AckMessage struct {
	// CommandID is the ID from the original command.
	CommandID string `json:"command_id"`

	// Timestamp is when the acknowledgment was sent (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the Slate Home device identifier.
	DeviceID string `json:"device_id"`

	// Status indicates the acknowledgment status.
	Status AckStatus `json:"status"`

	// Protocol is the protocol identifier ("curtain").
	Protocol string `json:"protocol"`

	// Address is the hexadecimal device address (e.g., "06FE").
	Address string `json:"address"`

	// Error contains details if status is "failed".
	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	// Code is the error code (e.g., "DEVICE_UNREACHABLE", "INVALID_COMMAND").
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeInvalidAddress    = "INVALID_ADDRESS"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// StateMessage is sent from Bridge to Core when a curtain reports position.
// Topic: slatehome/state/curtain/{address}
// QoS: 1, Retained: Yes
type StateMessage struct {
	// DeviceID is the Slate Home device identifier.
	DeviceID string `json:"device_id"`

	// Timestamp is when the state was observed (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// State contains the current device state.
	// Structure: {"position": 0-100}
	State map[string]any `json:"state"`

	// Protocol is the protocol identifier ("curtain").
	Protocol string `json:"protocol"`

	// Address is the hexadecimal device address (e.g., "06FE").
	Address string `json:"address"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge is operating with issues.
	HealthDegraded HealthStatus = "degraded"

	// HealthUnhealthy indicates the bridge is not operating correctly.
	HealthUnhealthy HealthStatus = "unhealthy"

	// HealthOffline indicates the bridge is not connected (from LWT).
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is sent from Bridge to Core to report operational status.
// Topic: slatehome/health/curtain
// QoS: 1, Retained: Yes
// Interval: Every 30 seconds
type HealthMessage struct {
	// Bridge is the bridge identifier ("curtain").
	Bridge string `json:"bridge"`

	// Timestamp is when the health status was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Status indicates the current operational status.
	Status HealthStatus `json:"status"`

	// Version is the bridge software version.
	Version string `json:"version"`

	// UptimeSeconds is how long the bridge has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// Connection contains hub connection details.
	Connection *ConnectionStatus `json:"connection,omitempty"`

	// Statistics contains operational metrics.
	Statistics *BridgeStatistics `json:"statistics,omitempty"`

	// DevicesManaged is the number of devices seen on the link.
	DevicesManaged int `json:"devices_managed"`

	// Reason explains the status (especially for offline/degraded).
	Reason string `json:"reason,omitempty"`
}

// ConnectionStatus describes the hub connection state.
type ConnectionStatus struct {
	// Status is the connection status ("connected", "disconnected").
	Status string `json:"status"`

	// Address is the hub connection address.
	Address string `json:"address,omitempty"`

	// LastActivity is when traffic last moved on the link.
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// BridgeStatistics contains operational metrics.
type BridgeStatistics struct {
	// FramesReceived is the total number of valid frames received.
	FramesReceived uint64 `json:"frames_received"`

	// FramesInvalid is the total number of frames dropped for bad CRC.
	FramesInvalid uint64 `json:"frames_invalid"`

	// CommandsSent is the total number of command frames written.
	CommandsSent uint64 `json:"commands_sent"`

	// Errors is the total number of errors encountered.
	Errors uint64 `json:"errors"`

	// Reconnects is the number of hub reconnections.
	Reconnects uint64 `json:"reconnects"`
}

// ScanRequestMessage is sent from Core to Bridge to start a discovery scan.
// Topic: slatehome/discovery/curtain/scan
type ScanRequestMessage struct {
	// RequestID uniquely identifies this scan for correlation.
	RequestID string `json:"request_id"`

	// Timestamp is when the request was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// WindowSeconds is the listening window; 0 uses the bridge default.
	WindowSeconds int `json:"window_seconds,omitempty"`
}

// DiscoveryMessage is sent from Bridge to Core with scan results.
// Topic: slatehome/discovery/curtain/result
type DiscoveryMessage struct {
	// RequestID is the ID from the originating scan request, if any.
	RequestID string `json:"request_id,omitempty"`

	// Timestamp is when the scan completed (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Bridge is the bridge identifier.
	Bridge string `json:"bridge"`

	// Devices contains the discovered devices.
	Devices []DiscoveryEntry `json:"devices"`
}

// DiscoveryEntry is the wire form of one discovered device.
type DiscoveryEntry struct {
	// Protocol is the protocol identifier.
	Protocol string `json:"protocol"`

	// Address is the hexadecimal device address (e.g., "06FE").
	Address string `json:"address"`

	// Name is the display name resolved by the naming policy.
	Name string `json:"name"`

	// Position is the last known position, if reported.
	Position *int `json:"position,omitempty"`

	// DiscoveredAt is when the device was first captured in this scan.
	DiscoveredAt time.Time `json:"discovered_at"`
}

// JSON marshalling helpers

// MarshalJSON marshals a CommandMessage to JSON.
func (m *CommandMessage) MarshalJSON() ([]byte, error) {
	type Alias CommandMessage
	return json.Marshal(&struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias:     (*Alias)(m),
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
	})
}

// UnmarshalJSON unmarshals a CommandMessage from JSON.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type Alias CommandMessage
	aux := &struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// NewAckMessage creates an acknowledgment message for a command.
func NewAckMessage(cmd CommandMessage, status AckStatus, addr DeviceAddress) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    status,
		Protocol:  "curtain",
		Address:   addr.TopicForm(),
	}
}

// NewAckError creates an acknowledgment with error details.
func NewAckError(cmd CommandMessage, addr DeviceAddress, code, message string) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    AckFailed,
		Protocol:  "curtain",
		Address:   addr.TopicForm(),
		Error: &AckError{
			Code:    code,
			Message: message,
		},
	}
}

// NewStateMessage creates a state message for a device position report.
func NewStateMessage(deviceID string, addr DeviceAddress, position int) StateMessage {
	return StateMessage{
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
		State:     map[string]any{"position": position},
		Protocol:  "curtain",
		Address:   addr.TopicForm(),
	}
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, stats CoordinatorStats, hubAddr string, startTime time.Time) HealthMessage {
	msg := HealthMessage{
		Bridge:         bridgeID,
		Timestamp:      time.Now().UTC(),
		Status:         status,
		Version:        version,
		UptimeSeconds:  int64(time.Since(startTime).Seconds()),
		DevicesManaged: stats.DevicesSeen,
	}

	if stats.Connected {
		lastActivity := stats.LastActivity
		msg.Connection = &ConnectionStatus{
			Status:       "connected",
			Address:      hubAddr,
			LastActivity: &lastActivity,
		}
	} else {
		msg.Connection = &ConnectionStatus{
			Status:  "disconnected",
			Address: hubAddr,
		}
	}

	msg.Statistics = &BridgeStatistics{
		FramesReceived: stats.FramesValid,
		FramesInvalid:  stats.FramesInvalid,
		CommandsSent:   stats.CommandsSent,
		Errors:         stats.ErrorsTotal,
		Reconnects:     stats.Reconnects,
	}

	return msg
}

// NewLWTMessage creates a Last Will and Testament message for MQTT.
// This message is published by the broker if the bridge disconnects unexpectedly.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

// NewDiscoveryMessage converts a scan snapshot into its wire form.
func NewDiscoveryMessage(requestID string, devices []DiscoveredDevice) DiscoveryMessage {
	entries := make([]DiscoveryEntry, 0, len(devices))
	for _, dev := range devices {
		entry := DiscoveryEntry{
			Protocol:     "curtain",
			Address:      dev.Address.TopicForm(),
			Name:         dev.Name,
			DiscoveredAt: dev.DiscoveredAt,
		}
		if dev.PositionKnown {
			position := dev.Position
			entry.Position = &position
		}
		entries = append(entries, entry)
	}
	return DiscoveryMessage{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Bridge:    "curtain",
		Devices:   entries,
	}
}

// Topic helpers

const (
	// TopicPrefix is the base topic for all Slate Home messages.
	TopicPrefix = "slatehome"
)

// CommandTopic returns the MQTT topic for commands to a specific address.
// Example: slatehome/command/curtain/06FE
func CommandTopic(addr DeviceAddress) string {
	return fmt.Sprintf("%s/command/curtain/%s", TopicPrefix, addr.TopicForm())
}

// AckTopic returns the MQTT topic for command acknowledgments.
// Example: slatehome/ack/curtain/06FE
func AckTopic(addr DeviceAddress) string {
	return fmt.Sprintf("%s/ack/curtain/%s", TopicPrefix, addr.TopicForm())
}

// StateTopic returns the MQTT topic for state updates.
// Example: slatehome/state/curtain/06FE
func StateTopic(addr DeviceAddress) string {
	return fmt.Sprintf("%s/state/curtain/%s", TopicPrefix, addr.TopicForm())
}

// HealthTopic returns the MQTT topic for health status.
// Example: slatehome/health/curtain
func HealthTopic() string {
	return fmt.Sprintf("%s/health/curtain", TopicPrefix)
}

// DiscoveryScanTopic returns the MQTT topic that triggers a scan.
// Example: slatehome/discovery/curtain/scan
func DiscoveryScanTopic() string {
	return fmt.Sprintf("%s/discovery/curtain/scan", TopicPrefix)
}

// DiscoveryResultTopic returns the MQTT topic for scan results.
// Example: slatehome/discovery/curtain/result
func DiscoveryResultTopic() string {
	return fmt.Sprintf("%s/discovery/curtain/result", TopicPrefix)
}

// CommandSubscribeTopic returns the MQTT subscription pattern for all commands.
// Example: slatehome/command/curtain/#
func CommandSubscribeTopic() string {
	return fmt.Sprintf("%s/command/curtain/#", TopicPrefix)
}

// AddressFromTopic extracts the device address from the last segment of a
// command topic. Addresses appear as bare hex (e.g., "06FE").
func AddressFromTopic(topic string) (DeviceAddress, error) {
	idx := strings.LastIndexByte(topic, '/')
	if idx < 0 || idx == len(topic)-1 {
		return 0, fmt.Errorf("%w: topic %q has no address segment", ErrInvalidAddress, topic)
	}
	return ParseDeviceAddress(topic[idx+1:])
}
