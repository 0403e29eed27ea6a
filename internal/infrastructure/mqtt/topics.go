package mqtt

import "fmt"

// Topic prefixes for the slatehome MQTT bus.
//
// All bridge topics use the flat scheme: slatehome/{category}/{protocol}/{address}
// This matches the curtain bridge's messages.go and all runtime subscribers.
const (
	// TopicPrefixBridge is the base for all bridge topics.
	// Flat scheme: slatehome/{category}/{protocol}/{address_or_id}
	TopicPrefixBridge = "slatehome"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "slatehome/system"
)

// Topics provides builders for slatehome MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
// Bridge topics use the flat scheme matching the curtain bridge's messages.go:
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.BridgeState("curtain", "06FE")
//	// Returns: "slatehome/state/curtain/06FE"
type Topics struct{}

// =============================================================================
// Bridge Topics
// =============================================================================

// BridgeState returns the topic for device state updates from a bridge.
//
// Example: slatehome/state/curtain/06FE
func (Topics) BridgeState(protocol, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeCommand returns the topic for commands to a bridge.
//
// Example: slatehome/command/curtain/06FE
func (Topics) BridgeCommand(protocol, address string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeAck returns the topic for command acknowledgements from a bridge.
//
// Example: slatehome/ack/curtain/06FE
func (Topics) BridgeAck(protocol, address string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeHealth returns the topic for bridge health status.
//
// Example: slatehome/health/curtain
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, protocol)
}

// BridgeDiscoveryScan returns the topic that triggers a discovery scan.
//
// Example: slatehome/discovery/curtain/scan
func (Topics) BridgeDiscoveryScan(protocol string) string {
	return fmt.Sprintf("%s/discovery/%s/scan", TopicPrefixBridge, protocol)
}

// BridgeDiscoveryResult returns the topic carrying discovery scan results.
//
// Example: slatehome/discovery/curtain/result
func (Topics) BridgeDiscoveryResult(protocol string) string {
	return fmt.Sprintf("%s/discovery/%s/result", TopicPrefixBridge, protocol)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
//
// Example: slatehome/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllBridgeStates returns a pattern matching all bridge state updates.
//
// Pattern: slatehome/state/+/+
func (Topics) AllBridgeStates() string {
	return fmt.Sprintf("%s/state/+/+", TopicPrefixBridge)
}

// AllBridgeCommands returns a pattern matching all commands to bridges.
//
// Pattern: slatehome/command/+/+
func (Topics) AllBridgeCommands() string {
	return fmt.Sprintf("%s/command/+/+", TopicPrefixBridge)
}

// AllBridgeAcks returns a pattern matching all bridge acknowledgements.
//
// Pattern: slatehome/ack/+/+
func (Topics) AllBridgeAcks() string {
	return fmt.Sprintf("%s/ack/+/+", TopicPrefixBridge)
}

// AllBridgeHealth returns a pattern matching all bridge health updates.
//
// Pattern: slatehome/health/+
func (Topics) AllBridgeHealth() string {
	return fmt.Sprintf("%s/health/+", TopicPrefixBridge)
}

// BridgeCommands returns a pattern matching every command for one bridge.
//
// Pattern: slatehome/command/curtain/#
func (Topics) BridgeCommands(protocol string) string {
	return fmt.Sprintf("%s/command/%s/#", TopicPrefixBridge, protocol)
}

// AllTopics returns a pattern matching all slatehome topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: slatehome/#
func (Topics) AllTopics() string {
	return "slatehome/#"
}
