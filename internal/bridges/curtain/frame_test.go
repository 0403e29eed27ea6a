package curtain

import (
	"bytes"
	"errors"
	"testing"
)

func TestComputeCRC(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{
			name: "open command header for 0x06FE",
			data: []byte{0x55, 0x06, 0xFE, 0x03, 0x04, 0x64},
			want: 0xDD46,
		},
		{
			name: "status header for 0x06FE at raw 97",
			data: []byte{0x55, 0x06, 0xFE, 0x01, 0x01, 0x61},
			want: 0x4E24,
		},
		{
			name: "probe header for 0x06FE",
			data: []byte{0x55, 0x06, 0xFE, 0x01, 0x01, 0x00},
			want: 0xA6E5,
		},
		{
			name: "stop command header for 0xABCD",
			data: []byte{0x55, 0xAB, 0xCD, 0x03, 0x04, 0x50},
			want: 0x96E5,
		},
		{
			name: "empty input returns the seed",
			data: nil,
			want: 0xFFFF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCRC(tt.data)
			if got != tt.want {
				t.Errorf("ComputeCRC() = 0x%04X, want 0x%04X", got, tt.want)
			}
		})
	}
}

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name     string
		addr     DeviceAddress
		function byte
		dataAddr byte
		data     byte
		want     []byte
	}{
		{
			name:     "open 0x06FE",
			addr:     0x06FE,
			function: FuncControl,
			dataAddr: DataAddrPosition,
			data:     DataOpen,
			// marker, addr hi/lo big-endian, func, data addr, data, CRC little-endian
			want: []byte{0x55, 0x06, 0xFE, 0x03, 0x04, 0x64, 0x46, 0xDD},
		},
		{
			name:     "close 0x0001",
			addr:     0x0001,
			function: FuncControl,
			dataAddr: DataAddrPosition,
			data:     DataClose,
			want:     []byte{0x55, 0x00, 0x01, 0x03, 0x04, 0x00, 0xFF, 0x22},
		},
		{
			name:     "stop 0xABCD",
			addr:     0xABCD,
			function: FuncControl,
			dataAddr: DataAddrPosition,
			data:     DataStop,
			want:     []byte{0x55, 0xAB, 0xCD, 0x03, 0x04, 0x50, 0xE5, 0x96},
		},
		{
			name:     "probe 0x06FE",
			addr:     0x06FE,
			function: FuncStatus,
			dataAddr: DataAddrStatus,
			data:     0x00,
			want:     []byte{0x55, 0x06, 0xFE, 0x01, 0x01, 0x00, 0xE5, 0xA6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeCommand(tt.addr, tt.function, tt.dataAddr, tt.data)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeCommand() = % X, want % X", got, tt.want)
			}
		})
	}
}

// Every encoded frame must decode back identically. This is the round-trip
// law the poller and command path lean on.
func TestEncodeParseRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		addr     DeviceAddress
		function byte
		dataAddr byte
		data     byte
	}{
		{"open", 0x06FE, FuncControl, DataAddrPosition, DataOpen},
		{"close", 0x0000, FuncControl, DataAddrPosition, DataClose},
		{"stop", 0xFFFF, FuncControl, DataAddrPosition, DataStop},
		{"probe", 0x1234, FuncStatus, DataAddrStatus, 0x00},
		{"status report", 0x0A0B, FuncStatus, DataAddrStatus, 0x28},
		{"unknown function", 0x5555, 0x7F, 0x7F, 0x7F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := EncodeCommand(tt.addr, tt.function, tt.dataAddr, tt.data)

			frame, err := ParseFrame(raw)
			if err != nil {
				t.Fatalf("ParseFrame() unexpected error: %v", err)
			}
			if frame.Address != tt.addr {
				t.Errorf("Address = %v, want %v", frame.Address, tt.addr)
			}
			if frame.Function != tt.function {
				t.Errorf("Function = 0x%02X, want 0x%02X", frame.Function, tt.function)
			}
			if frame.DataAddress != tt.dataAddr {
				t.Errorf("DataAddress = 0x%02X, want 0x%02X", frame.DataAddress, tt.dataAddr)
			}
			if frame.Data != tt.data {
				t.Errorf("Data = 0x%02X, want 0x%02X", frame.Data, tt.data)
			}

			if reencoded := frame.Encode(); !bytes.Equal(reencoded, raw) {
				t.Errorf("Encode() = % X, want % X", reencoded, raw)
			}
		})
	}
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		want    Frame
		wantErr error
	}{
		{
			name: "status report 0x06FE raw 97",
			raw:  []byte{0x55, 0x06, 0xFE, 0x01, 0x01, 0x61, 0x24, 0x4E},
			want: Frame{Address: 0x06FE, Function: 0x01, DataAddress: 0x01, Data: 0x61},
		},
		{
			name: "status report 0x1234 raw 100",
			raw:  []byte{0x55, 0x12, 0x34, 0x01, 0x01, 0x64, 0xEB, 0x96},
			want: Frame{Address: 0x1234, Function: 0x01, DataAddress: 0x01, Data: 0x64},
		},
		{
			name:    "too short",
			raw:     []byte{0x55, 0x06, 0xFE},
			wantErr: ErrInvalidFrame,
		},
		{
			name:    "too long",
			raw:     []byte{0x55, 0x06, 0xFE, 0x01, 0x01, 0x61, 0x24, 0x4E, 0x00},
			wantErr: ErrInvalidFrame,
		},
		{
			name:    "missing marker",
			raw:     []byte{0x54, 0x06, 0xFE, 0x01, 0x01, 0x61, 0x24, 0x4E},
			wantErr: ErrInvalidFrame,
		},
		{
			name: "corrupted payload fails CRC",
			// valid status frame with the data byte flipped
			raw:     []byte{0x55, 0x06, 0xFE, 0x01, 0x01, 0x62, 0x24, 0x4E},
			wantErr: ErrCRCMismatch,
		},
		{
			name: "corrupted CRC trailer",
			raw:     []byte{0x55, 0x06, 0xFE, 0x01, 0x01, 0x61, 0x24, 0x4F},
			wantErr: ErrCRCMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrame(tt.raw)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseFrame() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseFrame() unexpected error: %v", err)
			}
			if got.Address != tt.want.Address {
				t.Errorf("Address = %v, want %v", got.Address, tt.want.Address)
			}
			if got.Function != tt.want.Function {
				t.Errorf("Function = 0x%02X, want 0x%02X", got.Function, tt.want.Function)
			}
			if got.DataAddress != tt.want.DataAddress {
				t.Errorf("DataAddress = 0x%02X, want 0x%02X", got.DataAddress, tt.want.DataAddress)
			}
			if got.Data != tt.want.Data {
				t.Errorf("Data = 0x%02X, want 0x%02X", got.Data, tt.want.Data)
			}
			if got.Timestamp.IsZero() {
				t.Error("Timestamp not set")
			}
		})
	}
}

func TestFindFrames(t *testing.T) {
	validA := []byte{0x55, 0x06, 0xFE, 0x01, 0x01, 0x61, 0x24, 0x4E} // status 0x06FE
	validB := []byte{0x55, 0x12, 0x34, 0x01, 0x01, 0x64, 0xEB, 0x96} // status 0x1234

	concat := func(parts ...[]byte) []byte {
		var out []byte
		for _, p := range parts {
			out = append(out, p...)
		}
		return out
	}

	tests := []struct {
		name           string
		buf            []byte
		wantCandidates int
		wantValid      int
		wantConsumed   int
	}{
		{
			name:           "empty buffer",
			buf:            nil,
			wantCandidates: 0,
			wantValid:      0,
			wantConsumed:   0,
		},
		{
			name:           "garbage without marker is all consumed",
			buf:            []byte{0x01, 0x02, 0x03, 0xFF},
			wantCandidates: 0,
			wantValid:      0,
			wantConsumed:   4,
		},
		{
			name:           "single frame",
			buf:            validA,
			wantCandidates: 1,
			wantValid:      1,
			wantConsumed:   8,
		},
		{
			name:           "garbage before frame",
			buf:            concat([]byte{0x01, 0x02, 0x03}, validA),
			wantCandidates: 1,
			wantValid:      1,
			wantConsumed:   11,
		},
		{
			name:           "two frames back to back",
			buf:            concat(validA, validB),
			wantCandidates: 2,
			wantValid:      2,
			wantConsumed:   16,
		},
		{
			name: "truncated frame is retained, not consumed",
			// first five bytes of a status frame
			buf:            validA[:5],
			wantCandidates: 0,
			wantValid:      0,
			wantConsumed:   0,
		},
		{
			name:           "frame followed by partial next frame",
			buf:            concat(validA, validB[:3]),
			wantCandidates: 1,
			wantValid:      1,
			wantConsumed:   8,
		},
		{
			name: "false marker does not swallow the real frame",
			// a stray 0x55 three bytes ahead of a genuine frame: the
			// 8-byte candidate at the stray marker fails CRC and only its
			// marker byte is consumed, so the genuine frame still parses
			buf:            concat([]byte{0x55, 0xAA, 0xBB}, validA),
			wantCandidates: 2,
			wantValid:      1,
			wantConsumed:   11,
		},
		{
			name: "garbage after last frame without marker is consumed",
			buf:            concat(validA, []byte{0x00, 0x11, 0x22}),
			wantCandidates: 1,
			wantValid:      1,
			wantConsumed:   11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates, consumed := FindFrames(tt.buf)

			if len(candidates) != tt.wantCandidates {
				t.Errorf("candidates = %d, want %d", len(candidates), tt.wantCandidates)
			}
			if consumed != tt.wantConsumed {
				t.Errorf("consumed = %d, want %d", consumed, tt.wantConsumed)
			}

			valid := 0
			for _, c := range candidates {
				if len(c) != FrameSize {
					t.Errorf("candidate length = %d, want %d", len(c), FrameSize)
				}
				if frameCRCValid(c) {
					valid++
				}
			}
			if valid != tt.wantValid {
				t.Errorf("valid candidates = %d, want %d", valid, tt.wantValid)
			}
		})
	}
}

// The retained tail from one read must complete into a frame when the rest
// arrives. This mirrors how the listen loop carries bytes across reads.
func TestFindFramesSplitAcrossReads(t *testing.T) {
	full := []byte{0x55, 0x06, 0xFE, 0x01, 0x01, 0x61, 0x24, 0x4E}

	for split := 1; split < len(full); split++ {
		first := full[:split]

		candidates, consumed := FindFrames(first)
		if len(candidates) != 0 {
			t.Fatalf("split %d: got %d candidates from partial frame", split, len(candidates))
		}
		if consumed != 0 {
			t.Fatalf("split %d: consumed = %d, want 0", split, consumed)
		}

		// Simulate the carry: retained tail + next read
		pending := append(append([]byte{}, first[consumed:]...), full[split:]...)
		candidates, consumed = FindFrames(pending)
		if len(candidates) != 1 {
			t.Fatalf("split %d: candidates after reassembly = %d, want 1", split, len(candidates))
		}
		if consumed != FrameSize {
			t.Fatalf("split %d: consumed after reassembly = %d, want %d", split, consumed, FrameSize)
		}
		if !frameCRCValid(candidates[0]) {
			t.Fatalf("split %d: reassembled frame fails CRC", split)
		}
	}
}

func TestNormalizePosition(t *testing.T) {
	tests := []struct {
		name string
		raw  int
		want int
	}{
		{"fully open", 100, 100},
		{"near open snaps up", 97, 100},
		{"near open snaps up (98)", 98, 100},
		{"just below threshold stays", 96, 96},
		{"fully closed", 0, 0},
		{"near closed snaps down", 3, 0},
		{"near closed snaps down (1)", 1, 0},
		{"just above threshold stays", 4, 4},
		{"mid travel unchanged", 50, 50},
		{"out of range passes through", 120, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePosition(tt.raw)
			if got != tt.want {
				t.Errorf("NormalizePosition(%d) = %d, want %d", tt.raw, got, tt.want)
			}
			// Normalization happens once at ingestion; applying it again
			// must never move the value further.
			if again := NormalizePosition(got); again != got {
				t.Errorf("NormalizePosition not idempotent: %d -> %d -> %d", tt.raw, got, again)
			}
		})
	}
}

func TestFrameIsStatus(t *testing.T) {
	status := Frame{Address: 0x06FE, Function: FuncStatus, DataAddress: DataAddrStatus, Data: 0x61}
	if !status.IsStatus() {
		t.Error("IsStatus() = false for a status frame")
	}
	if got := status.Position(); got != 100 {
		t.Errorf("Position() = %d, want 100 (raw 0x61 normalizes)", got)
	}

	command := Frame{Address: 0x06FE, Function: FuncControl, DataAddress: DataAddrPosition, Data: DataOpen}
	if command.IsStatus() {
		t.Error("IsStatus() = true for a control frame")
	}

	// same function, different data address is not a position report
	other := Frame{Address: 0x06FE, Function: FuncStatus, DataAddress: 0x02, Data: 0x01}
	if other.IsStatus() {
		t.Error("IsStatus() = true for a non-position status register")
	}
}

func TestNewPositionCommand(t *testing.T) {
	tests := []struct {
		name    string
		percent int
		want    byte
		wantErr bool
	}{
		{"closed", 0, 0x00, false},
		{"mid travel", 45, 0x2D, false},
		{"open", 100, 0x64, false},
		{"below range", -1, 0, true},
		{"above range", 101, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := NewPositionCommand(0x06FE, tt.percent)

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPosition) {
					t.Errorf("NewPositionCommand() error = %v, want ErrInvalidPosition", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("NewPositionCommand() unexpected error: %v", err)
			}
			if frame.Function != FuncControl {
				t.Errorf("Function = 0x%02X, want 0x%02X", frame.Function, FuncControl)
			}
			if frame.DataAddress != DataAddrPosition {
				t.Errorf("DataAddress = 0x%02X, want 0x%02X", frame.DataAddress, DataAddrPosition)
			}
			if frame.Data != tt.want {
				t.Errorf("Data = 0x%02X, want 0x%02X", frame.Data, tt.want)
			}
		})
	}
}

func TestNewStatusQuery(t *testing.T) {
	frame := NewStatusQuery(0x06FE)

	if frame.Address != 0x06FE {
		t.Errorf("Address = %v, want 0x06FE", frame.Address)
	}
	if frame.Function != FuncStatus {
		t.Errorf("Function = 0x%02X, want 0x%02X", frame.Function, FuncStatus)
	}
	if frame.DataAddress != DataAddrStatus {
		t.Errorf("DataAddress = 0x%02X, want 0x%02X", frame.DataAddress, DataAddrStatus)
	}
	if frame.Data != 0x00 {
		t.Errorf("Data = 0x%02X, want 0x00", frame.Data)
	}

	// encodes to the known probe bytes
	want := []byte{0x55, 0x06, 0xFE, 0x01, 0x01, 0x00, 0xE5, 0xA6}
	if got := frame.Encode(); !bytes.Equal(got, want) {
		t.Errorf("Encode() = % X, want % X", got, want)
	}
}
