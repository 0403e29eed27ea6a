package curtain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Default timeouts and intervals for hub communication.
const (
	// DefaultHubPort is the TCP port curtain hubs listen on.
	DefaultHubPort = 32

	// defaultDialTimeout is the maximum time to wait for a connection.
	defaultDialTimeout = 10 * time.Second

	// defaultReadTimeout bounds individual blocking reads so the listen
	// loop periodically observes the shutdown signal.
	defaultReadTimeout = 30 * time.Second

	// defaultWriteTimeout is the timeout for command writes.
	defaultWriteTimeout = 5 * time.Second

	// defaultRetryInterval is the fixed delay after a failed connect or a
	// read error. The link is expected to come back, so there is no
	// backoff growth and no retry limit.
	defaultRetryInterval = 5 * time.Second

	// defaultReadBufferSize is how many bytes one read may return.
	defaultReadBufferSize = 1024

	// defaultPollInterval is how often the optional poller queries each
	// discovered device for its position.
	defaultPollInterval = 5 * time.Second

	// notifyQueueSize is the buffer size for the notification queue.
	notifyQueueSize = 100

	// notifyWorkerCount is the number of concurrent notification workers.
	notifyWorkerCount = 4
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Dialer abstracts connection establishment for testability.
// *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// FrameRecorder receives every valid frame for passive journalling.
// Implementations are invoked from the worker pool, not the listen loop.
type FrameRecorder interface {
	RecordFrame(addr DeviceAddress, function, dataAddr, data byte)
}

// Controller is the coordinator surface collaborators depend on.
// This allows mocking the coordinator in tests.
type Controller interface {
	SendCommand(ctx context.Context, addr DeviceAddress, function, dataAddr, data byte) error
	GetPosition(addr DeviceAddress) (int, bool)
	RegisterObserver(addr DeviceAddress, observer PositionObserver)
	UnregisterObserver(addr DeviceAddress)
	AddDiscoveryListener(l DiscoveryListener)
	RemoveDiscoveryListener(l DiscoveryListener)
	DiscoveredAddresses() []DeviceAddress
	IsConnected() bool
	Stats() CoordinatorStats
	Close() error
}

// Ensure Coordinator implements Controller.
var _ Controller = (*Coordinator)(nil)

// CoordinatorConfig holds hub connection configuration.
type CoordinatorConfig struct {
	// Host is the hub's address or hostname.
	Host string

	// Port is the hub's TCP port. Default: 32.
	Port int

	// ReadBufferSize is the maximum bytes per read. Default: 1024.
	ReadBufferSize int

	// RetryInterval is the fixed delay after connect failures and read
	// errors. Default: 5 seconds.
	RetryInterval time.Duration

	// DialTimeout is the maximum time to wait for a connection.
	// Default: 10 seconds.
	DialTimeout time.Duration

	// ReadTimeout bounds a single blocking read. Default: 30 seconds.
	ReadTimeout time.Duration

	// WriteTimeout bounds a single command write. Default: 5 seconds.
	WriteTimeout time.Duration

	// Polling enables the optional periodic status poll of every
	// discovered device.
	Polling PollingSettings

	// Dialer overrides connection establishment (tests). Default: net.Dialer.
	Dialer Dialer
}

// PollingSettings configures the optional status poller.
type PollingSettings struct {
	// Enabled turns polling on. Default: off. Devices report position
	// changes on their own; polling only speeds up catch-up after
	// restarts.
	Enabled bool

	// Interval is the time between poll rounds. Default: 5 seconds.
	Interval time.Duration
}

// CoordinatorStats holds operational statistics.
type CoordinatorStats struct {
	BytesRead     uint64
	FramesValid   uint64
	FramesInvalid uint64
	CommandsSent  uint64
	SendErrors    uint64
	NotifyDropped uint64 // Notifications dropped due to full queue
	ErrorsTotal   uint64
	Reconnects    uint64 // Successful reconnections after the initial connect
	DevicesSeen   int
	LastActivity  time.Time
	Connected     bool
}

// Coordinator owns the session with one curtain hub.
//
// It runs a single listen loop that reads the shared stream, extracts
// CRC-validated frames, and applies them to the device registry. Commands
// from any number of goroutines are serialized through one lock so frames
// are never interleaved on the wire.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Observer notifications run on a bounded worker pool.
//
// Reconnection:
//   - Peer-closed streams are redialed immediately.
//   - Connect failures and read errors retry every RetryInterval,
//     indefinitely, until Close is called.
type Coordinator struct {
	cfg CoordinatorConfig

	conn net.Conn

	// Connection state
	connMu    sync.RWMutex
	connected bool

	// Single wire lock: at most one outbound command in flight.
	sendMu sync.Mutex

	// Device state, discovery set, observers
	registry *registry

	// Notification worker pool (bounded goroutine spawning)
	notifyQueue chan notifyJob

	// Optional traffic journal hook
	recorder   FrameRecorder
	recorderMu sync.RWMutex

	// Shutdown coordination (closeOnce prevents double-close panics).
	// baseCtx cancels redial attempts so Close never waits out a dial.
	done       *closeOnce
	wg         sync.WaitGroup
	baseCtx    context.Context
	baseCancel context.CancelFunc

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex

	// Statistics (atomic for performance)
	bytesRead     atomic.Uint64
	framesValid   atomic.Uint64
	framesInvalid atomic.Uint64
	commandsSent  atomic.Uint64
	sendErrors    atomic.Uint64
	notifyDropped atomic.Uint64
	errorsTotal   atomic.Uint64
	reconnects    atomic.Uint64
	lastActivity  atomic.Int64 // Unix timestamp
}

// Connect establishes the session with the curtain hub.
//
// The initial dial is synchronous: if the hub is unreachable the error is
// returned and nothing is started, letting the host retry setup on its own
// schedule. On success the listen loop, the notification workers, and the
// optional status poller are running when Connect returns.
//
// Parameters:
//   - ctx: Context for cancellation (used for the initial dial)
//   - cfg: Connection configuration
//
// Returns:
//   - *Coordinator: Connected coordinator ready for use
//   - error: If the initial connection fails
func Connect(ctx context.Context, cfg CoordinatorConfig) (*Coordinator, error) {
	// Apply defaults
	if cfg.Port == 0 {
		cfg.Port = DefaultHubPort
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = defaultReadBufferSize
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Polling.Interval == 0 {
		cfg.Polling.Interval = defaultPollInterval
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: no host configured", ErrConnectionFailed)
	}

	c := &Coordinator{
		cfg:         cfg,
		done:        newCloseOnce(),
		notifyQueue: make(chan notifyJob, notifyQueueSize),
	}
	c.baseCtx, c.baseCancel = context.WithCancel(context.Background())
	c.registry = newRegistry(loggerFunc(c.logViaCoordinator), c.enqueueNotify)
	c.lastActivity.Store(time.Now().Unix())

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: dial failed: %w", ErrConnectionFailed, err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connected = true
	c.connMu.Unlock()

	// Start notification worker pool (bounded goroutine count)
	for i := 0; i < notifyWorkerCount; i++ {
		c.wg.Add(1)
		go c.notifyWorker()
	}

	// Start listen loop
	c.wg.Add(1)
	go c.listenLoop()

	// Start optional status poller
	if cfg.Polling.Enabled {
		c.wg.Add(1)
		go c.pollLoop()
	}

	return c, nil
}

// hubAddr returns the host:port dial target.
func (c *Coordinator) hubAddr() string {
	return net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
}

// dial opens one TCP connection to the hub, bounded by DialTimeout.
func (c *Coordinator) dial(ctx context.Context) (net.Conn, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	dialer := c.cfg.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	conn, err := dialer.DialContext(dialCtx, "tcp", c.hubAddr())
	if err != nil {
		return nil, fmt.Errorf("dial tcp://%s: %w", c.hubAddr(), err)
	}
	return conn, nil
}

// listenLoop continuously reads the hub stream and feeds the codec.
//
// Partial trailing bytes are carried across reads so a frame split over
// two reads is reassembled rather than dropped.
func (c *Coordinator) listenLoop() {
	defer c.wg.Done()

	buf := make([]byte, c.cfg.ReadBufferSize)
	var pending []byte

	for {
		if c.isClosed() {
			return
		}

		if !c.IsConnected() {
			if !c.redial() {
				return // Shutdown during redial
			}
			// New stream: any partial tail belonged to the old one.
			pending = pending[:0]
		}

		n, err := c.readOnce(buf)
		if n > 0 {
			c.bytesRead.Add(uint64(n))
			pending = c.processBytes(append(pending, buf[:n]...))
		}
		if err == nil {
			continue
		}

		if c.isClosed() {
			return
		}

		switch {
		case errors.Is(err, io.EOF):
			// Peer closed the stream: redial immediately, no delay.
			c.handleDisconnect("peer closed connection")

		case isTimeout(err):
			// Deadline wake-up; loop around to observe shutdown.

		case errors.Is(err, ErrNotConnected):
			// Lost a race with a disconnect; loop around to redial.

		default:
			c.errorsTotal.Add(1)
			c.logError("read failed", err)
			c.handleDisconnect("read error")
			if !c.sleepRetry() {
				return
			}
		}
	}
}

// readOnce performs a single bounded read from the current stream.
func (c *Coordinator) readOnce(buf []byte) (int, error) {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil {
		return 0, ErrNotConnected
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
		return 0, fmt.Errorf("set read deadline: %w", err)
	}

	return conn.Read(buf)
}

// processBytes extracts frames from pending and returns the retained tail
// compacted to the front of the buffer.
func (c *Coordinator) processBytes(pending []byte) []byte {
	candidates, consumed := FindFrames(pending)

	for _, raw := range candidates {
		frame, err := ParseFrame(raw)
		if err != nil {
			c.framesInvalid.Add(1)
			c.logWarn("dropping invalid frame", "error", err)
			continue
		}

		c.framesValid.Add(1)
		c.lastActivity.Store(time.Now().Unix())
		c.logDebug("frame received", "frame", frame.String())
		c.registry.observeFrame(frame)
	}

	if consumed >= len(pending) {
		return pending[:0]
	}
	return append(pending[:0], pending[consumed:]...)
}

// redial re-establishes the connection, retrying every RetryInterval
// until it succeeds or shutdown is signalled. Returns false on shutdown.
func (c *Coordinator) redial() bool {
	for {
		if c.isClosed() {
			return false
		}

		conn, err := c.dial(c.baseCtx)
		if err == nil {
			if !c.adoptConn(conn) {
				// Another path connected first; use that stream.
				return true
			}
			c.reconnects.Add(1)
			c.logInfo("connected to hub", "address", c.hubAddr(), "reconnects", c.reconnects.Load())
			return true
		}

		if c.isClosed() {
			return false
		}
		c.errorsTotal.Add(1)
		c.logError("hub connect failed", err)
		if !c.sleepRetry() {
			return false
		}
	}
}

// adoptConn installs a freshly dialed stream unless one is already live.
// Returns false (closing the new stream) when the existing one wins.
func (c *Coordinator) adoptConn(conn net.Conn) bool {
	c.connMu.Lock()
	if c.connected {
		c.connMu.Unlock()
		conn.Close()
		return false
	}
	c.conn = conn
	c.connected = true
	c.connMu.Unlock()
	return true
}

// sleepRetry waits RetryInterval or returns false if shutdown was
// signalled first.
func (c *Coordinator) sleepRetry() bool {
	select {
	case <-c.done.Done():
		return false
	case <-time.After(c.cfg.RetryInterval):
		return true
	}
}

// handleDisconnect releases the current stream and records the reason.
func (c *Coordinator) handleDisconnect(reason string) {
	c.connMu.Lock()
	wasConnected := c.connected
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	if wasConnected {
		c.logInfo("connection lost", "reason", reason)
	}
}

// isTimeout reports whether err is a read-deadline expiry.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// notifyWorker delivers queued observer and journal notifications.
// Runs in a bounded worker pool to prevent goroutine explosion.
func (c *Coordinator) notifyWorker() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done.Done():
			c.drainNotifyQueue()
			return
		case job := <-c.notifyQueue:
			c.deliver(job)
		}
	}
}

// deliver hands one job to the recorder and the observer, isolating each.
func (c *Coordinator) deliver(job notifyJob) {
	c.recorderMu.RLock()
	recorder := c.recorder
	c.recorderMu.RUnlock()

	if recorder != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logError("frame recorder panic", fmt.Errorf("%v", r))
				}
			}()
			recorder.RecordFrame(job.frame.Address, job.frame.Function, job.frame.DataAddress, job.frame.Data)
		}()
	}

	if job.observer != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logError("position observer panic", fmt.Errorf("%v", r))
				}
			}()
			job.observer.PositionChanged(job.frame.Address, job.position)
		}()
	}
}

// enqueueNotify queues a job for the worker pool, dropping on overflow so
// a slow collaborator can never stall the listen loop.
func (c *Coordinator) enqueueNotify(job notifyJob) {
	select {
	case c.notifyQueue <- job:
	default:
		c.notifyDropped.Add(1)
		c.errorsTotal.Add(1)
		c.logWarn("notification queue full, dropping", "device", job.frame.Address.String())
	}
}

// drainNotifyQueue discards queued jobs during shutdown.
func (c *Coordinator) drainNotifyQueue() {
	for {
		select {
		case <-c.notifyQueue:
		default:
			return
		}
	}
}

// pollLoop periodically asks every discovered device for its position.
func (c *Coordinator) pollLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.Polling.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done.Done():
			return
		case <-ticker.C:
			c.pollDiscovered()
		}
	}
}

// pollDiscovered sends one status query per discovered device. A send
// failure aborts the round; the link is likely down and the listen loop
// owns recovery.
func (c *Coordinator) pollDiscovered() {
	if !c.IsConnected() {
		return
	}

	for _, addr := range c.registry.discovered() {
		if c.isClosed() {
			return
		}
		if err := c.SendCommand(context.Background(), addr, FuncStatus, DataAddrStatus, 0x00); err != nil {
			c.logWarn("status poll failed", "device", addr.String(), "error", err)
			return
		}
	}
}

// isClosed returns true if the coordinator has been closed.
func (c *Coordinator) isClosed() bool {
	select {
	case <-c.done.Done():
		return true
	default:
		return false
	}
}

// Close shuts the coordinator down.
//
// It signals the listen loop, wakes any blocked read, waits for every
// goroutine to observe the signal and exit, and only then releases the
// stream. Safe to call multiple times.
//
// Returns:
//   - error: nil (closing is best-effort)
func (c *Coordinator) Close() error {
	c.done.Close()
	c.baseCancel()

	// Wake a blocked read without tearing the stream down; the loop must
	// observe shutdown and exit before the stream is released.
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn != nil {
		_ = conn.SetReadDeadline(time.Now())
	}

	c.wg.Wait()

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	c.connMu.Unlock()

	c.logInfo("coordinator closed")
	return nil
}

// SendCommand encodes and transmits one command frame.
//
// The write happens under the coordinator-wide command lock, so concurrent
// callers are serialized and frames reach the wire as contiguous 8-byte
// units. If the hub is disconnected, one inline connect is attempted
// before giving up. A write failure disconnects and returns the error;
// retrying is the caller's decision.
//
// Success means the bytes were written. There is no acknowledgement on
// this link; devices report resulting state asynchronously via status
// frames.
func (c *Coordinator) SendCommand(ctx context.Context, addr DeviceAddress, function, dataAddr, data byte) error {
	if c.isClosed() {
		return ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	frame := EncodeCommand(addr, function, dataAddr, data)

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrSendFailed, ctx.Err())
	default:
	}

	if !c.IsConnected() {
		conn, err := c.dial(ctx)
		if err != nil {
			c.sendErrors.Add(1)
			return fmt.Errorf("%w: %w", ErrSendFailed, err)
		}
		if c.adoptConn(conn) {
			c.logInfo("connected to hub for command", "address", c.hubAddr())
		}
	}

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil {
		c.sendErrors.Add(1)
		return ErrNotConnected
	}

	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		c.sendErrors.Add(1)
		return fmt.Errorf("%w: set deadline: %w", ErrSendFailed, err)
	}

	if _, err := conn.Write(frame); err != nil {
		c.sendErrors.Add(1)
		c.errorsTotal.Add(1)
		c.handleDisconnect("write failed")
		return fmt.Errorf("%w: write: %w", ErrSendFailed, err)
	}

	c.commandsSent.Add(1)
	c.lastActivity.Store(time.Now().Unix())
	c.logDebug("command sent", "device", addr.String(),
		"function", fmt.Sprintf("0x%02X", function),
		"data_addr", fmt.Sprintf("0x%02X", dataAddr),
		"data", fmt.Sprintf("0x%02X", data))

	return nil
}

// GetPosition returns the last known normalized position for a device.
// The second return is false until the first status frame arrives.
func (c *Coordinator) GetPosition(addr DeviceAddress) (int, bool) {
	return c.registry.position(addr)
}

// RegisterObserver attaches the position observer for an address.
// At most one observer per address; re-registering overwrites silently.
func (c *Coordinator) RegisterObserver(addr DeviceAddress, observer PositionObserver) {
	c.registry.register(addr, observer)
}

// UnregisterObserver detaches the observer for an address. Detaching an
// address without an observer is a no-op.
func (c *Coordinator) UnregisterObserver(addr DeviceAddress) {
	c.registry.unregister(addr)
}

// AddDiscoveryListener attaches a listener for first sightings.
func (c *Coordinator) AddDiscoveryListener(l DiscoveryListener) {
	c.registry.addListener(l)
}

// RemoveDiscoveryListener detaches a listener. Removing one that is not
// attached is a no-op.
func (c *Coordinator) RemoveDiscoveryListener(l DiscoveryListener) {
	c.registry.removeListener(l)
}

// DiscoveredAddresses returns every address seen on the link, sorted.
func (c *Coordinator) DiscoveredAddresses() []DeviceAddress {
	return c.registry.discovered()
}

// SetRecorder attaches the traffic journal hook. Pass nil to detach.
func (c *Coordinator) SetRecorder(r FrameRecorder) {
	c.recorderMu.Lock()
	c.recorder = r
	c.recorderMu.Unlock()
}

// SetLogger sets the logger for this coordinator.
func (c *Coordinator) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// IsConnected returns true if a hub stream is currently live.
func (c *Coordinator) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

// Stats returns current operational statistics.
func (c *Coordinator) Stats() CoordinatorStats {
	return CoordinatorStats{
		BytesRead:     c.bytesRead.Load(),
		FramesValid:   c.framesValid.Load(),
		FramesInvalid: c.framesInvalid.Load(),
		CommandsSent:  c.commandsSent.Load(),
		SendErrors:    c.sendErrors.Load(),
		NotifyDropped: c.notifyDropped.Load(),
		ErrorsTotal:   c.errorsTotal.Load(),
		Reconnects:    c.reconnects.Load(),
		DevicesSeen:   c.registry.deviceCount(),
		LastActivity:  time.Unix(c.lastActivity.Load(), 0),
		Connected:     c.IsConnected(),
	}
}

// HealthCheck verifies the hub session is alive.
//
// Note: This only checks connection state. For active verification, probe
// a known device and watch for its status frame.
func (c *Coordinator) HealthCheck(_ context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// loggerFunc adapts the coordinator's optional logger for the registry.
type loggerFunc func(level, msg string, keysAndValues ...any)

func (f loggerFunc) Debug(msg string, keysAndValues ...any) { f("debug", msg, keysAndValues...) }
func (f loggerFunc) Info(msg string, keysAndValues ...any)  { f("info", msg, keysAndValues...) }
func (f loggerFunc) Warn(msg string, keysAndValues ...any)  { f("warn", msg, keysAndValues...) }
func (f loggerFunc) Error(msg string, keysAndValues ...any) { f("error", msg, keysAndValues...) }

// logViaCoordinator routes registry logging through the current logger so
// SetLogger applies to both.
func (c *Coordinator) logViaCoordinator(level, msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger == nil {
		return
	}
	switch level {
	case "debug":
		logger.Debug(msg, keysAndValues...)
	case "warn":
		logger.Warn(msg, keysAndValues...)
	case "error":
		logger.Error(msg, keysAndValues...)
	default:
		logger.Info(msg, keysAndValues...)
	}
}

// logDebug logs a debug message if logger is set.
func (c *Coordinator) logDebug(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if logger is set.
func (c *Coordinator) logInfo(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (c *Coordinator) logWarn(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (c *Coordinator) logError(msg string, err error) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
