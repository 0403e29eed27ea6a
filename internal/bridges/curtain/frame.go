package curtain

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Wire protocol constants.
const (
	// FrameMarker is the fixed first byte of every frame.
	FrameMarker byte = 0x55

	// FrameSize is the fixed on-wire size of a frame in bytes.
	FrameSize = 8

	// crcCoverage is the number of leading bytes covered by the trailing CRC.
	crcCoverage = 6

	// crcSeed is the CRC-16 initial value.
	crcSeed uint16 = 0xFFFF

	// crcPoly is the CRC-16 polynomial (Modbus variant, LSB-first).
	crcPoly uint16 = 0xA001
)

// Function codes and data addresses observed on the link.
const (
	// FuncStatus reports or queries device state.
	FuncStatus byte = 0x01

	// FuncControl carries movement commands.
	FuncControl byte = 0x03

	// DataAddrStatus selects the position report within FuncStatus.
	DataAddrStatus byte = 0x01

	// DataAddrPosition selects the target-position register within FuncControl.
	DataAddrPosition byte = 0x04
)

// Well-known data values for FuncControl/DataAddrPosition commands.
const (
	// DataOpen drives the curtain fully open (100%).
	DataOpen byte = 0x64

	// DataClose drives the curtain fully closed (0%).
	DataClose byte = 0x00

	// DataStop halts movement. The hardware uses 0x50 as the stop
	// convention rather than a dedicated function code.
	DataStop byte = 0x50
)

// Position normalization thresholds. Hardware position reports are
// imprecise near the travel limits, so readings close to either end are
// snapped to it.
const (
	normalizeHighFloor = 97
	normalizeLowCeil   = 3

	// PositionOpen and PositionClosed are the normalized travel limits.
	PositionOpen   = 100
	PositionClosed = 0
)

// Frame is one decoded 8-byte protocol unit.
//
// The same layout carries both directions: status reports from devices and
// commands from the coordinator. Data is the raw wire byte; for status
// frames use Position to obtain the normalized percent-open value.
type Frame struct {
	// Address is the device the frame belongs to.
	Address DeviceAddress

	// Function selects the operation or report kind.
	Function byte

	// DataAddress selects the register within the function.
	DataAddress byte

	// Data is the single payload byte, uninterpreted.
	Data byte

	// Timestamp records when the frame was parsed or created.
	Timestamp time.Time
}

// ComputeCRC computes the frame checksum over data.
//
// CRC-16 with polynomial 0xA001, initial value 0xFFFF, processing each
// byte LSB-first with eight shifts. Deterministic and allocation-free.
func ComputeCRC(data []byte) uint16 {
	crc := crcSeed
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ crcPoly
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// EncodeCommand builds a complete 8-byte frame.
//
// The header is [0x55, addr hi, addr lo, function, dataAddr, data] with
// the CRC of those six bytes appended little-endian.
//
// Parameters:
//   - addr: Target device address
//   - function: Function code (e.g. FuncControl)
//   - dataAddr: Data address within the function (e.g. DataAddrPosition)
//   - data: Payload byte
//
// Returns:
//   - []byte: The 8 wire bytes, ready to send
func EncodeCommand(addr DeviceAddress, function, dataAddr, data byte) []byte {
	frame := make([]byte, FrameSize)
	frame[0] = FrameMarker
	frame[1] = addr.High()
	frame[2] = addr.Low()
	frame[3] = function
	frame[4] = dataAddr
	frame[5] = data
	binary.LittleEndian.PutUint16(frame[6:8], ComputeCRC(frame[:crcCoverage]))
	return frame
}

// FindFrames scans buf for 8-byte frame candidates.
//
// It returns every candidate found (CRC-valid or not) and the number of
// leading bytes of buf that were consumed. The caller must retain
// buf[consumed:] and re-offer it prepended to the next read: a marker
// followed by fewer than 8 bytes is an incomplete frame still in flight,
// never an error.
//
// Resynchronization rules:
//   - Bytes before the first marker are garbage and are consumed.
//   - A CRC-valid candidate consumes its full 8 bytes.
//   - A CRC-invalid candidate consumes only its marker byte; scanning
//     resumes at the next byte, so a 0x55 inside a payload or a corrupted
//     frame can never permanently desynchronize the stream, and scanning
//     never loops on the same bad marker.
//
// Returned candidate slices alias buf; parse them before reusing the buffer.
func FindFrames(buf []byte) (candidates [][]byte, consumed int) {
	i := 0
	for {
		j := bytes.IndexByte(buf[i:], FrameMarker)
		if j < 0 {
			// No marker in the remainder; all of it is garbage.
			return candidates, len(buf)
		}
		start := i + j
		if start+FrameSize > len(buf) {
			// Partial tail: keep from the marker onward.
			return candidates, start
		}

		candidate := buf[start : start+FrameSize]
		candidates = append(candidates, candidate)

		if frameCRCValid(candidate) {
			i = start + FrameSize
		} else {
			i = start + 1
		}
	}
}

// frameCRCValid reports whether an 8-byte candidate carries a correct CRC.
func frameCRCValid(frame []byte) bool {
	return binary.LittleEndian.Uint16(frame[crcCoverage:FrameSize]) == ComputeCRC(frame[:crcCoverage])
}

// ParseFrame decodes and validates one 8-byte frame.
//
// Parameters:
//   - raw: Exactly 8 bytes starting with the marker
//
// Returns:
//   - Frame: Decoded frame with Timestamp set to now
//   - error: ErrInvalidFrame for length/marker violations (a programming
//     error at the call site), ErrCRCMismatch for corrupt frames (an
//     operational condition: log and skip)
func ParseFrame(raw []byte) (Frame, error) {
	if len(raw) != FrameSize {
		return Frame{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidFrame, FrameSize, len(raw))
	}
	if raw[0] != FrameMarker {
		return Frame{}, fmt.Errorf("%w: missing marker, got 0x%02X", ErrInvalidFrame, raw[0])
	}
	if !frameCRCValid(raw) {
		return Frame{}, fmt.Errorf("%w: computed 0x%04X, frame carries 0x%04X",
			ErrCRCMismatch, ComputeCRC(raw[:crcCoverage]), binary.LittleEndian.Uint16(raw[crcCoverage:FrameSize]))
	}

	return Frame{
		Address:     DeviceAddressFromBytes(raw[1], raw[2]),
		Function:    raw[3],
		DataAddress: raw[4],
		Data:        raw[5],
		Timestamp:   time.Now(),
	}, nil
}

// NormalizePosition corrects a raw hardware position reading.
//
// Readings in [97,100] snap to 100 and readings in [0,3] snap to 0;
// everything else passes through unchanged. Idempotent. Applied once, at
// ingestion; raw values never travel past the codec boundary.
func NormalizePosition(raw int) int {
	switch {
	case raw >= normalizeHighFloor && raw <= PositionOpen:
		return PositionOpen
	case raw >= PositionClosed && raw <= normalizeLowCeil:
		return PositionClosed
	default:
		return raw
	}
}

// IsStatus returns true if this is a position status report.
func (f Frame) IsStatus() bool {
	return f.Function == FuncStatus && f.DataAddress == DataAddrStatus
}

// Position returns the normalized percent-open value of a status frame.
// Only meaningful when IsStatus is true.
func (f Frame) Position() int {
	return NormalizePosition(int(f.Data))
}

// Encode returns the frame's 8 wire bytes with a freshly computed CRC.
func (f Frame) Encode() []byte {
	return EncodeCommand(f.Address, f.Function, f.DataAddress, f.Data)
}

// String returns a human-readable representation for debug logs.
func (f Frame) String() string {
	kind := "FRAME"
	if f.IsStatus() {
		kind = "STATUS"
	}
	return fmt.Sprintf("Frame{%s, Addr:%s, Func:0x%02X, DataAddr:0x%02X, Data:0x%02X}",
		kind, f.Address, f.Function, f.DataAddress, f.Data)
}

// NewPositionCommand creates a command frame driving a curtain to a target
// percent-open value.
//
// Parameters:
//   - addr: Target device address
//   - percent: Target position, 0 (closed) to 100 (open)
//
// Returns:
//   - Frame: Ready to encode and send
//   - error: ErrInvalidPosition if percent is out of range
func NewPositionCommand(addr DeviceAddress, percent int) (Frame, error) {
	if percent < PositionClosed || percent > PositionOpen {
		return Frame{}, fmt.Errorf("%w: %d", ErrInvalidPosition, percent)
	}
	return Frame{
		Address:     addr,
		Function:    FuncControl,
		DataAddress: DataAddrPosition,
		Data:        byte(percent),
		Timestamp:   time.Now(),
	}, nil
}

// NewStatusQuery creates the probe frame that asks a device to report its
// position. Devices answer asynchronously on the normal status path; there
// is no request/response correlation on this link.
func NewStatusQuery(addr DeviceAddress) Frame {
	return Frame{
		Address:     addr,
		Function:    FuncStatus,
		DataAddress: DataAddrStatus,
		Data:        0x00,
		Timestamp:   time.Now(),
	}
}
