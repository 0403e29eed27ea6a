package curtain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultScanTimeout is how long a scan listens for device traffic when
// the caller does not choose a window.
const DefaultScanTimeout = 30 * time.Second

// DiscoveredDevice is a point-in-time snapshot of one device seen on the
// link. Each scan produces a fresh set; snapshots are never mutated.
type DiscoveredDevice struct {
	Address DeviceAddress
	Name    string

	// Position is the last known normalized position. Only meaningful
	// when PositionKnown is true; a device discovered through a
	// non-status frame has not reported one yet.
	Position      int
	PositionKnown bool

	DiscoveredAt time.Time
}

// ScannerConfig holds discovery configuration.
type ScannerConfig struct {
	// Names maps hexadecimal addresses (for example "0x06FE") to display
	// names. Optional.
	Names map[string]string

	// UseNames applies the Names mapping during scans. When false, scan
	// results carry generated fallback names.
	UseNames bool

	// ScanTimeout is the default listening window. Default: 30 seconds.
	ScanTimeout time.Duration
}

// ScannerStats holds discovery statistics.
type ScannerStats struct {
	ScansRun        uint64
	LastScanAt      time.Time
	LastScanDevices int
	KnownNames      int
}

// Scanner discovers devices by listening for their traffic.
//
// Devices announce themselves simply by transmitting; there is no active
// enumeration on this bus. A scan attaches a discovery listener to the
// coordinator, waits out the window, and merges in anything the registry
// had already seen before the listener was attached.
type Scanner struct {
	ctrl  Controller
	names map[DeviceAddress]string
	cfg   ScannerConfig

	mu       sync.Mutex
	captured map[DeviceAddress]time.Time

	scansRun    atomic.Uint64
	lastScanAt  atomic.Int64 // Unix timestamp
	lastScanHit atomic.Int64

	logger   Logger
	loggerMu sync.RWMutex
}

// NewScanner creates a discovery scanner over a coordinator.
//
// Returns an error if any key in cfg.Names is not a valid hexadecimal
// device address.
func NewScanner(ctrl Controller, cfg ScannerConfig) (*Scanner, error) {
	if cfg.ScanTimeout == 0 {
		cfg.ScanTimeout = DefaultScanTimeout
	}

	names := make(map[DeviceAddress]string, len(cfg.Names))
	for key, name := range cfg.Names {
		addr, err := ParseDeviceAddress(key)
		if err != nil {
			return nil, fmt.Errorf("device name mapping %q: %w", key, err)
		}
		names[addr] = name
	}

	return &Scanner{
		ctrl:     ctrl,
		names:    names,
		cfg:      cfg,
		captured: make(map[DeviceAddress]time.Time),
	}, nil
}

// SetLogger sets the logger for this scanner.
func (s *Scanner) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

// scanListener captures first sightings during a scan window. Registered
// by pointer so it can be removed again.
type scanListener struct {
	scanner *Scanner
}

func (l *scanListener) DeviceDiscovered(addr DeviceAddress) {
	l.scanner.capture(addr)
}

// capture records a sighting. Runs on the listen loop, so it only takes
// the map lock and returns.
func (s *Scanner) capture(addr DeviceAddress) {
	s.mu.Lock()
	if _, seen := s.captured[addr]; !seen {
		s.captured[addr] = time.Now()
	}
	s.mu.Unlock()
}

// Scan listens passively for device traffic and returns a snapshot of
// every device seen.
//
// The scan clears its transient capture map, attaches a discovery
// listener, waits out the window (or until ctx is cancelled), then
// back-fills addresses the registry discovered before the listener was
// attached. The listener is always detached on exit.
//
// Parameters:
//   - ctx: Cancels the window early; whatever was captured is returned
//   - timeout: Listening window; <= 0 uses the configured default
//
// Returns:
//   - []DiscoveredDevice: Snapshot sorted by address
func (s *Scanner) Scan(ctx context.Context, timeout time.Duration) []DiscoveredDevice {
	if timeout <= 0 {
		timeout = s.cfg.ScanTimeout
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.captured = make(map[DeviceAddress]time.Time)
	s.mu.Unlock()

	listener := &scanListener{scanner: s}
	s.ctrl.AddDiscoveryListener(listener)
	defer s.ctrl.RemoveDiscoveryListener(listener)

	s.logDebug("scan started", "window", timeout.String())

	select {
	case <-ctx.Done():
		s.logDebug("scan cancelled early")
	case <-time.After(timeout):
	}

	// Devices that announced themselves before this scan attached its
	// listener never trigger it; pull them from the registry.
	now := time.Now()
	s.mu.Lock()
	for _, addr := range s.ctrl.DiscoveredAddresses() {
		if _, seen := s.captured[addr]; !seen {
			s.captured[addr] = now
		}
	}

	devices := make([]DiscoveredDevice, 0, len(s.captured))
	for addr, at := range s.captured {
		dev := DiscoveredDevice{
			Address:      addr,
			Name:         s.nameForLocked(addr, s.cfg.UseNames),
			DiscoveredAt: at,
		}
		if pos, ok := s.ctrl.GetPosition(addr); ok {
			dev.Position = pos
			dev.PositionKnown = true
		}
		devices = append(devices, dev)
	}
	s.mu.Unlock()

	sort.Slice(devices, func(i, j int) bool { return devices[i].Address < devices[j].Address })

	s.scansRun.Add(1)
	s.lastScanAt.Store(now.Unix())
	s.lastScanHit.Store(int64(len(devices)))
	s.logInfo("scan complete", "devices", len(devices))

	return devices
}

// NameFor resolves a display name for a device address.
//
// With useMapping true and the address present in the configured mapping,
// the mapped name is returned. Otherwise a generated fallback embedding
// the hexadecimal address is returned.
func (s *Scanner) NameFor(addr DeviceAddress, useMapping bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nameForLocked(addr, useMapping)
}

func (s *Scanner) nameForLocked(addr DeviceAddress, useMapping bool) string {
	if useMapping {
		if name, ok := s.names[addr]; ok {
			return name
		}
	}
	return fmt.Sprintf("Curtain %s", addr.String())
}

// TestDevice probes the send path for one device by transmitting a
// status query. True means the bytes were written; there is no response
// correlation on this link, so it is not proof the device heard them.
func (s *Scanner) TestDevice(ctx context.Context, addr DeviceAddress) bool {
	err := s.ctrl.SendCommand(ctx, addr, FuncStatus, DataAddrStatus, 0x00)
	if err != nil {
		s.logWarn("device probe failed", "device", addr.String(), "error", err)
		return false
	}
	return true
}

// CreateDeviceConfig builds the persistable record the host stores for a
// discovered device.
func (s *Scanner) CreateDeviceConfig(dev DiscoveredDevice) map[string]any {
	return map[string]any{
		"address":       dev.Address.String(),
		"name":          dev.Name,
		"last_position": dev.Position,
		"unique_id":     fmt.Sprintf("curtain_%s", strings.ToLower(dev.Address.TopicForm())),
	}
}

// ValidateAddresses probes each address with a status query and returns
// the ones whose query made it onto the wire, in input order. Stops
// early when ctx is cancelled; whatever validated so far is returned.
func (s *Scanner) ValidateAddresses(ctx context.Context, addrs []DeviceAddress) []DeviceAddress {
	valid := make([]DeviceAddress, 0, len(addrs))
	for _, addr := range addrs {
		if ctx.Err() != nil {
			break
		}
		if s.TestDevice(ctx, addr) {
			valid = append(valid, addr)
		}
	}
	return valid
}

// DeviceStatistics summarizes one scan result.
type DeviceStatistics struct {
	// Total is the number of devices in the scan result.
	Total int

	// Responding is how many of them have reported a position.
	Responding int

	// AveragePosition is the mean of the reported positions. Zero when
	// no device has reported one.
	AveragePosition float64
}

// Statistics summarizes a scan result.
func Statistics(devices []DiscoveredDevice) DeviceStatistics {
	stats := DeviceStatistics{Total: len(devices)}

	sum := 0
	for _, dev := range devices {
		if dev.PositionKnown {
			stats.Responding++
			sum += dev.Position
		}
	}
	if stats.Responding > 0 {
		stats.AveragePosition = float64(sum) / float64(stats.Responding)
	}
	return stats
}

// Stats returns current discovery statistics.
func (s *Scanner) Stats() ScannerStats {
	s.mu.Lock()
	known := len(s.names)
	s.mu.Unlock()

	return ScannerStats{
		ScansRun:        s.scansRun.Load(),
		LastScanAt:      time.Unix(s.lastScanAt.Load(), 0),
		LastScanDevices: int(s.lastScanHit.Load()),
		KnownNames:      known,
	}
}

// ParseAddressList parses a list of hexadecimal device addresses, as
// found in configuration files. Fails on the first invalid entry.
func ParseAddressList(raw []string) ([]DeviceAddress, error) {
	addrs := make([]DeviceAddress, 0, len(raw))
	for _, entry := range raw {
		addr, err := ParseDeviceAddress(entry)
		if err != nil {
			return nil, fmt.Errorf("address %q: %w", entry, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

func (s *Scanner) logDebug(msg string, keysAndValues ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (s *Scanner) logInfo(msg string, keysAndValues ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (s *Scanner) logWarn(msg string, keysAndValues ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}
