package curtain

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewScannerParsesNameKeys(t *testing.T) {
	ctrl := NewMockController()

	s, err := NewScanner(ctrl, ScannerConfig{
		Names: map[string]string{
			"0x06FE": "Living Room",
			"0B0B":   "Bedroom",
		},
		UseNames: true,
	})
	if err != nil {
		t.Fatalf("NewScanner() error: %v", err)
	}

	if got := s.NameFor(0x06FE, true); got != "Living Room" {
		t.Errorf("NameFor(0x06FE) = %q, want %q", got, "Living Room")
	}
	if got := s.NameFor(0x0B0B, true); got != "Bedroom" {
		t.Errorf("NameFor(0x0B0B) = %q, want %q", got, "Bedroom")
	}
}

func TestNewScannerRejectsBadNameKey(t *testing.T) {
	ctrl := NewMockController()

	_, err := NewScanner(ctrl, ScannerConfig{
		Names: map[string]string{"living-room": "Living Room"},
	})
	if err == nil {
		t.Fatal("NewScanner() expected error for unparseable name key")
	}
	if !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("NewScanner() error = %v, want ErrInvalidAddress", err)
	}
}

func TestScannerNameFallback(t *testing.T) {
	ctrl := NewMockController()
	s, err := NewScanner(ctrl, ScannerConfig{
		Names:    map[string]string{"0x06FE": "Living Room"},
		UseNames: true,
	})
	if err != nil {
		t.Fatalf("NewScanner() error: %v", err)
	}

	// Unmapped address falls back to the generated name.
	if got := s.NameFor(0x1234, true); got != "Curtain 0x1234" {
		t.Errorf("NameFor(unmapped) = %q, want %q", got, "Curtain 0x1234")
	}

	// Mapping disabled: even mapped addresses get the fallback.
	if got := s.NameFor(0x06FE, false); got != "Curtain 0x06FE" {
		t.Errorf("NameFor(mapped, false) = %q, want %q", got, "Curtain 0x06FE")
	}
}

func TestScanCapturesTraffic(t *testing.T) {
	ctrl := NewMockController()
	s, err := NewScanner(ctrl, ScannerConfig{
		Names:    map[string]string{"0x06FE": "Living Room"},
		UseNames: true,
	})
	if err != nil {
		t.Fatalf("NewScanner() error: %v", err)
	}

	// Device transmits mid-window.
	go func() {
		time.Sleep(30 * time.Millisecond)
		ctrl.SimulateStatus(0x06FE, 40)
	}()

	devices := s.Scan(context.Background(), 150*time.Millisecond)

	if len(devices) != 1 {
		t.Fatalf("Scan() returned %d devices, want 1", len(devices))
	}
	dev := devices[0]
	if dev.Address != 0x06FE {
		t.Errorf("device address = %v, want 0x06FE", dev.Address)
	}
	if dev.Name != "Living Room" {
		t.Errorf("device name = %q, want %q", dev.Name, "Living Room")
	}
	if !dev.PositionKnown || dev.Position != 40 {
		t.Errorf("device position = %d (known %v), want 40", dev.Position, dev.PositionKnown)
	}
	if dev.DiscoveredAt.IsZero() {
		t.Error("DiscoveredAt is zero")
	}

	// The scan listener must be gone after the window.
	if n := ctrl.ListenerCount(); n != 0 {
		t.Errorf("listeners after scan = %d, want 0", n)
	}
}

func TestScanBackfillsEarlierDiscoveries(t *testing.T) {
	ctrl := NewMockController()

	// Device announced itself long before this scan.
	ctrl.SimulateStatus(0x0B0B, 10)

	s, err := NewScanner(ctrl, ScannerConfig{})
	if err != nil {
		t.Fatalf("NewScanner() error: %v", err)
	}

	devices := s.Scan(context.Background(), 20*time.Millisecond)

	if len(devices) != 1 {
		t.Fatalf("Scan() returned %d devices, want 1", len(devices))
	}
	if devices[0].Address != 0x0B0B {
		t.Errorf("device address = %v, want 0x0B0B", devices[0].Address)
	}
}

func TestScanCancelledEarly(t *testing.T) {
	ctrl := NewMockController()
	ctrl.SimulateStatus(0x0001, 50)

	s, err := NewScanner(ctrl, ScannerConfig{})
	if err != nil {
		t.Fatalf("NewScanner() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	devices := s.Scan(ctx, 10*time.Second)
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Errorf("Scan() took %v after cancel, want prompt return", elapsed)
	}
	if len(devices) != 1 {
		t.Errorf("Scan() returned %d devices, want 1 (captured before cancel)", len(devices))
	}
}

func TestScanResultsSorted(t *testing.T) {
	ctrl := NewMockController()
	for _, addr := range []DeviceAddress{0x0BEE, 0x0001, 0x06FE} {
		ctrl.SimulateStatus(addr, 50)
	}

	s, err := NewScanner(ctrl, ScannerConfig{})
	if err != nil {
		t.Fatalf("NewScanner() error: %v", err)
	}

	devices := s.Scan(context.Background(), 20*time.Millisecond)

	want := []DeviceAddress{0x0001, 0x06FE, 0x0BEE}
	if len(devices) != len(want) {
		t.Fatalf("Scan() returned %d devices, want %d", len(devices), len(want))
	}
	for i := range want {
		if devices[i].Address != want[i] {
			t.Errorf("devices[%d] = %v, want %v", i, devices[i].Address, want[i])
		}
	}
}

func TestScannerStats(t *testing.T) {
	ctrl := NewMockController()
	ctrl.SimulateStatus(0x0001, 50)

	s, err := NewScanner(ctrl, ScannerConfig{
		Names: map[string]string{"0x0001": "Kitchen"},
	})
	if err != nil {
		t.Fatalf("NewScanner() error: %v", err)
	}

	if got := s.Stats().ScansRun; got != 0 {
		t.Errorf("ScansRun = %d before any scan, want 0", got)
	}

	s.Scan(context.Background(), 20*time.Millisecond)

	stats := s.Stats()
	if stats.ScansRun != 1 {
		t.Errorf("ScansRun = %d, want 1", stats.ScansRun)
	}
	if stats.LastScanDevices != 1 {
		t.Errorf("LastScanDevices = %d, want 1", stats.LastScanDevices)
	}
	if stats.KnownNames != 1 {
		t.Errorf("KnownNames = %d, want 1", stats.KnownNames)
	}
}

func TestTestDevice(t *testing.T) {
	ctrl := NewMockController()
	s, err := NewScanner(ctrl, ScannerConfig{})
	if err != nil {
		t.Fatalf("NewScanner() error: %v", err)
	}

	if !s.TestDevice(context.Background(), 0x06FE) {
		t.Error("TestDevice() = false, want true")
	}

	sent := ctrl.GetSent()
	if len(sent) != 1 {
		t.Fatalf("commands sent = %d, want 1", len(sent))
	}
	want := sentCommand{Addr: 0x06FE, Function: FuncStatus, DataAddr: DataAddrStatus, Data: 0x00}
	if sent[0] != want {
		t.Errorf("sent = %+v, want %+v", sent[0], want)
	}

	ctrl.SetSendError(ErrNotConnected)
	if s.TestDevice(context.Background(), 0x06FE) {
		t.Error("TestDevice() = true with send error, want false")
	}
}

func TestValidateAddresses(t *testing.T) {
	ctrl := NewMockController()
	s, err := NewScanner(ctrl, ScannerConfig{})
	if err != nil {
		t.Fatalf("NewScanner() error: %v", err)
	}

	addrs := []DeviceAddress{0x0001, 0x0002, 0x0003}

	valid := s.ValidateAddresses(context.Background(), addrs)
	if len(valid) != 3 {
		t.Fatalf("ValidateAddresses() returned %d, want 3", len(valid))
	}
	for i := range addrs {
		if valid[i] != addrs[i] {
			t.Errorf("valid[%d] = %v, want %v (input order preserved)", i, valid[i], addrs[i])
		}
	}

	ctrl.SetSendError(ErrSendFailed)
	if valid := s.ValidateAddresses(context.Background(), addrs); len(valid) != 0 {
		t.Errorf("ValidateAddresses() with send error returned %d, want 0", len(valid))
	}
}

func TestValidateAddressesStopsOnCancel(t *testing.T) {
	ctrl := NewMockController()
	s, err := NewScanner(ctrl, ScannerConfig{})
	if err != nil {
		t.Fatalf("NewScanner() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	valid := s.ValidateAddresses(ctx, []DeviceAddress{0x0001, 0x0002})
	if len(valid) != 0 {
		t.Errorf("ValidateAddresses() with cancelled ctx returned %d, want 0", len(valid))
	}
	if sent := ctrl.GetSent(); len(sent) != 0 {
		t.Errorf("commands sent = %d after cancel, want 0", len(sent))
	}
}

func TestStatistics(t *testing.T) {
	devices := []DiscoveredDevice{
		{Address: 0x0001, Position: 100, PositionKnown: true},
		{Address: 0x0002, Position: 0, PositionKnown: true},
		{Address: 0x0003, Position: 50, PositionKnown: true},
		{Address: 0x0004}, // discovered, never reported a position
	}

	stats := Statistics(devices)
	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.Responding != 3 {
		t.Errorf("Responding = %d, want 3", stats.Responding)
	}
	if stats.AveragePosition != 50 {
		t.Errorf("AveragePosition = %v, want 50", stats.AveragePosition)
	}
}

func TestStatisticsEmpty(t *testing.T) {
	stats := Statistics(nil)
	if stats.Total != 0 || stats.Responding != 0 || stats.AveragePosition != 0 {
		t.Errorf("Statistics(nil) = %+v, want zeros", stats)
	}
}

func TestCreateDeviceConfig(t *testing.T) {
	ctrl := NewMockController()
	s, err := NewScanner(ctrl, ScannerConfig{})
	if err != nil {
		t.Fatalf("NewScanner() error: %v", err)
	}

	cfg := s.CreateDeviceConfig(DiscoveredDevice{
		Address:       0x06FE,
		Name:          "Living Room",
		Position:      75,
		PositionKnown: true,
	})

	if cfg["address"] != "0x06FE" {
		t.Errorf("address = %v, want 0x06FE", cfg["address"])
	}
	if cfg["name"] != "Living Room" {
		t.Errorf("name = %v, want Living Room", cfg["name"])
	}
	if cfg["last_position"] != 75 {
		t.Errorf("last_position = %v, want 75", cfg["last_position"])
	}
	if cfg["unique_id"] != "curtain_06fe" {
		t.Errorf("unique_id = %v, want curtain_06fe", cfg["unique_id"])
	}
}

func TestParseAddressList(t *testing.T) {
	addrs, err := ParseAddressList([]string{"0x06FE", "0B0B", "0x0001"})
	if err != nil {
		t.Fatalf("ParseAddressList() error: %v", err)
	}

	want := []DeviceAddress{0x06FE, 0x0B0B, 0x0001}
	if len(addrs) != len(want) {
		t.Fatalf("ParseAddressList() returned %d, want %d", len(addrs), len(want))
	}
	for i := range want {
		if addrs[i] != want[i] {
			t.Errorf("addrs[%d] = %v, want %v", i, addrs[i], want[i])
		}
	}

	if _, err := ParseAddressList([]string{"0x06FE", "nope"}); err == nil {
		t.Error("ParseAddressList() expected error for invalid entry")
	}
}
