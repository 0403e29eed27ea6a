package curtain

import (
	"fmt"
	"sort"
	"sync"
)

// PositionObserver receives position updates for one registered device.
//
// Notifications are delivered from a bounded worker pool, never from the
// listen loop itself, so an observer may block briefly without stalling
// frame processing. Panics are recovered and logged.
type PositionObserver interface {
	PositionChanged(addr DeviceAddress, position int)
}

// DiscoveryListener is notified the first time an address is seen on the
// link, whatever kind of valid frame carried it.
//
// Listeners are invoked synchronously with the registry update and must
// hand any real work off to their own goroutines. They are identified by
// interface equality for removal, so implementations should be registered
// as pointer receivers.
type DiscoveryListener interface {
	DeviceDiscovered(addr DeviceAddress)
}

// notifyJob is the unit of work handed to the coordinator's worker pool
// for each valid frame: optional observer notification plus the journal
// hand-off.
type notifyJob struct {
	frame    Frame
	observer PositionObserver // non-nil when a status frame has an observer
	position int
}

// deviceRecord tracks what is known about one address.
type deviceRecord struct {
	position int
	known    bool // position observed at least once
	seen     bool // address observed on the wire (discovered set member)
	observer PositionObserver
}

// registry owns the device map and listener set for one coordinator.
//
// All state is instance-owned; there is no package-level registry. The
// enqueue function is the coordinator's worker-pool entry point and must
// never block.
type registry struct {
	mu        sync.RWMutex
	devices   map[DeviceAddress]*deviceRecord
	listeners []DiscoveryListener

	logger  Logger
	enqueue func(notifyJob)
}

func newRegistry(logger Logger, enqueue func(notifyJob)) *registry {
	return &registry{
		devices: make(map[DeviceAddress]*deviceRecord),
		logger:  logger,
		enqueue: enqueue,
	}
}

// observeFrame applies one valid frame to the registry.
//
// First sighting of the address adds it to the discovered set and invokes
// every discovery listener, each isolated so one failing listener cannot
// abort the others. A status frame then stores the normalized position
// (last write wins) and queues an asynchronous notification for the
// registered observer, if any.
func (r *registry) observeFrame(f Frame) {
	r.mu.Lock()
	rec, ok := r.devices[f.Address]
	if !ok {
		rec = &deviceRecord{}
		r.devices[f.Address] = rec
	}
	firstSighting := !rec.seen
	rec.seen = true

	var listeners []DiscoveryListener
	if firstSighting {
		listeners = make([]DiscoveryListener, len(r.listeners))
		copy(listeners, r.listeners)
	}
	r.mu.Unlock()

	for _, l := range listeners {
		r.fireDiscovery(l, f.Address)
	}

	if !f.IsStatus() {
		r.enqueue(notifyJob{frame: f})
		return
	}

	position := f.Position()

	r.mu.Lock()
	rec.position = position
	rec.known = true
	observer := rec.observer
	r.mu.Unlock()

	r.enqueue(notifyJob{frame: f, observer: observer, position: position})
}

// fireDiscovery invokes one listener with panic isolation.
func (r *registry) fireDiscovery(l DiscoveryListener, addr DeviceAddress) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.logger != nil {
				r.logger.Error("discovery listener panic", "device", addr.String(), "panic", fmt.Sprintf("%v", rec))
			}
		}
	}()
	l.DeviceDiscovered(addr)
}

// register attaches the observer for an address, replacing any previous
// one. Registering ahead of first sighting is allowed; the address joins
// the discovered set only when a frame actually carries it.
func (r *registry) register(addr DeviceAddress, observer PositionObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.devices[addr]
	if !ok {
		rec = &deviceRecord{}
		r.devices[addr] = rec
	}
	rec.observer = observer
}

// unregister detaches the observer for an address. Unknown addresses are
// a no-op. Records never seen on the wire are dropped entirely.
func (r *registry) unregister(addr DeviceAddress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.devices[addr]
	if !ok {
		return
	}
	rec.observer = nil
	if !rec.seen {
		delete(r.devices, addr)
	}
}

// position returns the last stored normalized position for an address.
func (r *registry) position(addr DeviceAddress) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.devices[addr]
	if !ok || !rec.known {
		return 0, false
	}
	return rec.position, true
}

// addListener attaches a discovery listener. Adding the same listener
// twice results in two invocations per discovery.
func (r *registry) addListener(l DiscoveryListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// removeListener detaches a discovery listener by interface equality.
// Removing a listener that is not attached is a no-op.
func (r *registry) removeListener(l DiscoveryListener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.listeners {
		if existing == l {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// discovered returns the addresses seen on the wire, sorted.
func (r *registry) discovered() []DeviceAddress {
	r.mu.RLock()
	addrs := make([]DeviceAddress, 0, len(r.devices))
	for addr, rec := range r.devices {
		if rec.seen {
			addrs = append(addrs, addr)
		}
	}
	r.mu.RUnlock()

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// deviceCount returns the number of discovered addresses.
func (r *registry) deviceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, rec := range r.devices {
		if rec.seen {
			n++
		}
	}
	return n
}
