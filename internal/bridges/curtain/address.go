package curtain

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceAddress identifies a physical curtain unit on the link.
//
// Addresses are 16-bit and unique per hub, not globally. On the wire they
// travel big-endian in frame bytes 1-2. The canonical text form is
// "0x06FE" (upper-case hex, zero-padded to four digits), which is the form
// used in config files, MQTT topics, and the traffic journal.
type DeviceAddress uint16

// addressHexDigits is the width of the canonical hex form.
const addressHexDigits = 4

// ParseDeviceAddress parses a device address string.
//
// Accepts formats:
//   - "0x06FE" / "0X06FE": hex with prefix (canonical)
//   - "06FE": bare hex, up to four digits
//   - "1790" is NOT decimal: bare strings are always read as hex
//
// Parameters:
//   - s: Device address string
//
// Returns:
//   - DeviceAddress: Parsed address
//   - error: ErrInvalidAddress if parsing fails
func ParseDeviceAddress(s string) (DeviceAddress, error) {
	trimmed := strings.TrimSpace(s)
	if t := strings.ToLower(trimmed); strings.HasPrefix(t, "0x") {
		trimmed = trimmed[2:]
	}
	if len(trimmed) == 0 || len(trimmed) > addressHexDigits {
		return 0, fmt.Errorf("%w: expected up to 4 hex digits, got %q", ErrInvalidAddress, s)
	}

	value, err := strconv.ParseUint(trimmed, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not valid hex", ErrInvalidAddress, s)
	}

	return DeviceAddress(value), nil
}

// String returns the canonical text form, e.g. "0x06FE".
func (a DeviceAddress) String() string {
	return fmt.Sprintf("0x%04X", uint16(a))
}

// TopicForm returns the address as it appears in MQTT topic segments,
// e.g. "06FE". Topics avoid the "0x" prefix to keep segments short.
func (a DeviceAddress) TopicForm() string {
	return fmt.Sprintf("%04X", uint16(a))
}

// High returns the big-endian high byte of the address (frame byte 1).
func (a DeviceAddress) High() byte {
	return byte(a >> 8)
}

// Low returns the big-endian low byte of the address (frame byte 2).
func (a DeviceAddress) Low() byte {
	return byte(a & 0xFF)
}

// DeviceAddressFromBytes assembles an address from its big-endian wire bytes.
func DeviceAddressFromBytes(hi, lo byte) DeviceAddress {
	return DeviceAddress(uint16(hi)<<8 | uint16(lo))
}
