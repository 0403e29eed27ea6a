// Package curtain implements the motorized-curtain protocol bridge.
//
// This package maintains a persistent TCP session with a curtain hub, a
// shared serial-over-TCP gateway behind which a fleet of motorized curtain
// controllers speak a compact 8-byte binary protocol. It decodes the
// unframed byte stream into discrete frames, tracks per-device position
// state, discovers devices passively as they emit traffic, and serializes
// outbound commands against the single physical link.
//
// # Architecture
//
// The bridge operates as a translator between two buses:
//
//	┌─────────────────┐          ┌─────────────────┐
//	│    Home Bus     │   MQTT   │ Curtain Bridge  │   TCP
//	│   (slatehome)   │◄────────►│   (this pkg)    │◄────────► Curtain Hub
//	└─────────────────┘          └─────────────────┘
//
// # Key Responsibilities
//
//   - Own the TCP session to the hub: connect, reconnect, clean shutdown
//   - Resynchronize the raw stream into CRC-validated 8-byte frames
//   - Track last known position per device address, normalized at ingestion
//   - Discover devices by observation and report them on demand
//   - Serialize command writes so frames are never interleaved on the wire
//   - Translate MQTT commands to curtain frames and status frames to MQTT state
//   - Publish health status and journal observed traffic
//
// # Wire Protocol
//
// Every frame is exactly 8 bytes:
//
//	[0x55][addr hi][addr lo][function][data addr][data][crc lo][crc hi]
//
// The trailing CRC-16 (poly 0xA001, seed 0xFFFF, LSB-first) covers the
// first six bytes and is transmitted little-endian. The device address is
// big-endian. Known operations:
//
//   - function 0x01, data addr 0x01: status report, data = position 0-100
//   - function 0x03, data addr 0x04: position command (0x64 open, 0x00
//     close, 0x50 stop, otherwise target percent)
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
// Reads from the hub are owned by the coordinator's listen loop; writes go
// through a single command lock.
package curtain
