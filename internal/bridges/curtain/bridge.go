package curtain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Bridge operation constants.
const (
	// minTopicParts is the minimum number of parts in a valid MQTT topic.
	minTopicParts = 3

	// commandTimeout is the timeout for sending commands to devices.
	commandTimeout = 5 * time.Second

	// maxScanWindowSeconds caps the scan window a request may ask for.
	maxScanWindowSeconds = 300
)

// Bridge orchestrates bidirectional translation between the curtain hub
// and MQTT. It handles:
//   - Receiving commands from Core via MQTT and translating to hub frames
//   - Receiving status frames and publishing state updates to MQTT
//   - Scan requests, health reporting, and graceful shutdown
//
// The bridge registers itself as a discovery listener on the coordinator;
// every device that appears on the link automatically gets the bridge as
// its position observer, so state flows to MQTT without configuration.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	bridgeID   string
	version    string
	hubAddress string
	scanWindow time.Duration

	mqtt      MQTTClient
	ctrl      Controller
	scanner   *Scanner
	health    *HealthReporter
	telemetry TelemetryWriter // Optional time-series hook

	// Position cache for change detection
	lastPublished   map[DeviceAddress]int
	lastPublishedMu sync.Mutex

	// At most one scan runs at a time.
	scanBusy atomic.Bool

	// Shutdown coordination
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel context.CancelFunc // Cancel function for ctx

	// Logger
	logger   Logger
	loggerMu sync.RWMutex
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool

	// Disconnect closes the connection gracefully.
	Disconnect(quiesce uint)
}

// TelemetryWriter receives every observed position for time-series
// recording. Implementations must not block; writes happen on the
// coordinator's notification workers.
// It is optional - if nil, the bridge operates without telemetry.
type TelemetryWriter interface {
	WritePosition(addr DeviceAddress, position int)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// BridgeID is the bridge identifier for health messages.
	// Default: "curtain".
	BridgeID string

	// Version is the bridge software version.
	Version string

	// HubAddress is the hub address reported in health messages.
	HubAddress string

	// HealthInterval is how often to publish health status.
	HealthInterval time.Duration

	// ScanWindow is the default discovery window for scan requests that
	// do not specify one.
	ScanWindow time.Duration

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Controller is the hub coordinator.
	Controller Controller

	// Scanner runs discovery scans.
	Scanner *Scanner

	// Telemetry is optional time-series recording for positions.
	// If nil, the bridge operates without telemetry.
	Telemetry TelemetryWriter

	// Logger is optional structured logger.
	Logger Logger
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if opts.Scanner == nil {
		return nil, fmt.Errorf("scanner is required")
	}
	if opts.BridgeID == "" {
		opts.BridgeID = "curtain"
	}
	if opts.ScanWindow == 0 {
		opts.ScanWindow = DefaultScanTimeout
	}

	// Create bridge-level context for command cancellation on shutdown
	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		bridgeID:      opts.BridgeID,
		version:       opts.Version,
		hubAddress:    opts.HubAddress,
		scanWindow:    opts.ScanWindow,
		mqtt:          opts.MQTTClient,
		ctrl:          opts.Controller,
		scanner:       opts.Scanner,
		telemetry:     opts.Telemetry,
		lastPublished: make(map[DeviceAddress]int),
		ctx:           ctx,
		ctxCancel:     ctxCancel,
		logger:        opts.Logger,
	}

	// Create health reporter
	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:   opts.BridgeID,
		Version:    opts.Version,
		HubAddress: opts.HubAddress,
		Interval:   opts.HealthInterval,
		Publisher:  opts.MQTTClient,
		Controller: opts.Controller,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start begins bridge operation.
// This subscribes to MQTT topics, attaches the bridge to the coordinator's
// discovery path, and starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	// Publish starting status
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	// Every device that appears on the link gets the bridge as its
	// position observer. Attach the listener first, then cover devices
	// the coordinator discovered before the bridge started.
	b.ctrl.AddDiscoveryListener(b)
	for _, addr := range b.ctrl.DiscoveredAddresses() {
		b.ctrl.RegisterObserver(addr, b)
	}

	// Subscribe to command topics
	commandTopic := CommandSubscribeTopic()
	if err := b.mqtt.Subscribe(commandTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	// Subscribe to scan requests
	scanTopic := DiscoveryScanTopic()
	if err := b.mqtt.Subscribe(scanTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to scan requests: %w", err)
	}
	b.logInfo("subscribed to scan requests", "topic", scanTopic)

	// Start health reporting
	b.health.Start(ctx)

	// Publish initial healthy status
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	b.logInfo("bridge started",
		"bridge_id", b.bridgeID,
		"hub", b.hubAddress)

	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		// Cancel bridge context to abort in-flight commands and scans
		b.ctxCancel()

		// Detach from the coordinator's notification paths
		b.ctrl.RemoveDiscoveryListener(b)
		for _, addr := range b.ctrl.DiscoveredAddresses() {
			b.ctrl.UnregisterObserver(addr)
		}

		// Stop health reporting (publishes "stopping" status)
		b.health.Stop()

		// Wait for pending operations
		b.wg.Wait()

		b.logInfo("bridge stopped")
	})
}

// DeviceDiscovered attaches the bridge as position observer for a newly
// sighted device. Runs synchronously on the listen loop, so it only does
// registry work; everything slower flows through the observer path.
func (b *Bridge) DeviceDiscovered(addr DeviceAddress) {
	b.ctrl.RegisterObserver(addr, b)
	b.logInfo("device discovered", "device", addr.String())
}

// PositionChanged publishes a state update for a device position report.
// Runs on the coordinator's notification workers.
func (b *Bridge) PositionChanged(addr DeviceAddress, position int) {
	// Every report feeds telemetry; only changes reach the retained
	// state topic.
	if b.telemetry != nil {
		b.telemetry.WritePosition(addr, position)
	}

	if b.positionUnchanged(addr, position) {
		return
	}

	msg := NewStateMessage(deviceID(addr), addr, position)
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal state", err)
		return
	}

	topic := StateTopic(addr)
	if err := b.mqtt.Publish(topic, payload, 1, true); err != nil {
		b.logError("failed to publish state", err)
		return
	}

	b.logDebug("state published", "device", addr.String(), "position", position)
}

// positionUnchanged checks if the position matches the last published
// value. Returns true if unchanged (should skip publish).
func (b *Bridge) positionUnchanged(addr DeviceAddress, position int) bool {
	b.lastPublishedMu.Lock()
	defer b.lastPublishedMu.Unlock()

	cached, ok := b.lastPublished[addr]
	if ok && cached == position {
		return true // Unchanged
	}

	b.lastPublished[addr] = position
	return false
}

// deviceID derives the stable Slate Home device identifier for an address.
func deviceID(addr DeviceAddress) string {
	return fmt.Sprintf("curtain_%s", strings.ToLower(addr.TopicForm()))
}

// handleMQTTMessage routes incoming MQTT messages to appropriate handlers.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	// Parse topic to determine message type
	parts := strings.Split(topic, "/")
	if len(parts) < minTopicParts {
		b.logError("invalid topic format", fmt.Errorf("topic: %s", topic))
		return
	}

	messageType := parts[1] // command, discovery, etc.

	switch messageType {
	case "command":
		b.handleCommand(topic, payload)
	case "discovery":
		b.handleScanRequest(payload)
	default:
		b.logError("unknown message type", fmt.Errorf("type: %s", messageType))
	}
}

// handleCommand processes a command message from Core. The target device
// comes from the topic's address segment.
func (b *Bridge) handleCommand(topic string, payload []byte) {
	addr, err := AddressFromTopic(topic)
	if err != nil {
		// No valid address segment means no ack topic to answer on.
		b.logError("command topic has no usable address", err)
		return
	}

	// Parse command message
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", err)
		return
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"device", addr.String(),
		"command", cmd.Command)

	if err := b.executeCommand(cmd, addr); err != nil {
		b.logError("command execution failed", err)
		// Error ack already sent by executeCommand
	}
}

// executeCommand translates and sends a command frame to the hub, then
// acknowledges the outcome. Accepted means the frame was written; there is
// no device-level confirmation on this link, so the resulting position
// arrives through the normal state path.
func (b *Bridge) executeCommand(cmd CommandMessage, addr DeviceAddress) error {
	// Derive timeout from bridge context so commands are cancelled on shutdown
	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	var err error
	switch cmd.Command {
	case "open":
		err = b.ctrl.SendCommand(ctx, addr, FuncControl, DataAddrPosition, DataOpen)
	case "close":
		err = b.ctrl.SendCommand(ctx, addr, FuncControl, DataAddrPosition, DataClose)
	case "stop":
		err = b.ctrl.SendCommand(ctx, addr, FuncControl, DataAddrPosition, DataStop)
	case "set_position":
		err = b.executeSetPosition(ctx, cmd, addr)
	case "probe":
		err = b.ctrl.SendCommand(ctx, addr, FuncStatus, DataAddrStatus, 0x00)
	default:
		b.publishAckError(cmd, addr, ErrCodeInvalidCommand,
			fmt.Sprintf("unknown command: %s", cmd.Command))
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}

	if err != nil {
		b.publishAckError(cmd, addr, ErrCodeDeviceUnreachable,
			fmt.Sprintf("send failed: %v", err))
		return err
	}

	b.publishAck(cmd, addr, AckAccepted)
	return nil
}

// executeSetPosition sends a position command with a validated target.
func (b *Bridge) executeSetPosition(ctx context.Context, cmd CommandMessage, addr DeviceAddress) error {
	// Get position from parameters
	posAny, ok := cmd.Parameters["position"]
	if !ok {
		b.publishAckError(cmd, addr, ErrCodeInvalidParameters,
			"missing 'position' parameter")
		return fmt.Errorf("missing position parameter")
	}

	position, ok := posAny.(float64)
	if !ok {
		b.publishAckError(cmd, addr, ErrCodeInvalidParameters,
			"'position' must be a number")
		return fmt.Errorf("position must be a number")
	}

	// Validate range (0-100%)
	if position < 0 || position > 100 {
		b.publishAckError(cmd, addr, ErrCodeInvalidParameters,
			fmt.Sprintf("'position' must be 0-100, got %.2f", position))
		return fmt.Errorf("position out of range: %.2f", position)
	}

	return b.ctrl.SendCommand(ctx, addr, FuncControl, DataAddrPosition, byte(position))
}

// publishAck publishes a command acknowledgment.
func (b *Bridge) publishAck(cmd CommandMessage, addr DeviceAddress, status AckStatus) {
	ack := NewAckMessage(cmd, status, addr)

	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}

	topic := AckTopic(addr)
	if err := b.mqtt.Publish(topic, payload, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// publishAckError publishes a failed command acknowledgment.
func (b *Bridge) publishAckError(cmd CommandMessage, addr DeviceAddress, code, message string) {
	ack := NewAckError(cmd, addr, code, message)

	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack error", err)
		return
	}

	topic := AckTopic(addr)
	if err := b.mqtt.Publish(topic, payload, 1, false); err != nil {
		b.logError("failed to publish ack error", err)
	}

	b.logError("command failed",
		fmt.Errorf("code=%s message=%s", code, message))
}

// handleScanRequest starts a discovery scan in the background and
// publishes the result when the window closes. At most one scan runs at a
// time; requests arriving mid-scan are dropped with a warning.
func (b *Bridge) handleScanRequest(payload []byte) {
	var req ScanRequestMessage
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			b.logError("failed to parse scan request", err)
			return
		}
	}

	if req.WindowSeconds < 0 || req.WindowSeconds > maxScanWindowSeconds {
		b.logError("scan request rejected",
			fmt.Errorf("window_seconds %d out of range [0,%d]", req.WindowSeconds, maxScanWindowSeconds))
		return
	}

	if !b.scanBusy.CompareAndSwap(false, true) {
		b.logWarn("scan already running, request dropped", "request_id", req.RequestID)
		return
	}

	window := b.scanWindow
	if req.WindowSeconds > 0 {
		window = time.Duration(req.WindowSeconds) * time.Second
	}

	b.logInfo("scan requested", "request_id", req.RequestID, "window", window.String())

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.scanBusy.Store(false)

		devices := b.scanner.Scan(b.ctx, window)
		b.publishScanResult(req.RequestID, devices)
	}()
}

// publishScanResult publishes a discovery result message.
func (b *Bridge) publishScanResult(requestID string, devices []DiscoveredDevice) {
	msg := NewDiscoveryMessage(requestID, devices)

	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal scan result", err)
		return
	}

	topic := DiscoveryResultTopic()
	if err := b.mqtt.Publish(topic, payload, 1, false); err != nil {
		b.logError("failed to publish scan result", err)
		return
	}

	b.logInfo("scan result published", "request_id", requestID, "devices", len(devices))
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
