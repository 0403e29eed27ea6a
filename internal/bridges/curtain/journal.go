package curtain

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Journal passively records device traffic seen on the curtain link. It is
// fed by the Coordinator's notification workers for every valid frame,
// building a database of known devices over time.
//
// The journal is diagnostics only: nothing reads it back into the live
// registry. It answers "which devices exist and when did we last hear
// them" across restarts, which the in-memory registry cannot.
//
// Thread Safety: All methods are safe for concurrent use.
type Journal struct {
	db     *sql.DB
	logger Logger

	// Prepared statements for upserts (created once, reused)
	deviceUpsertStmt *sql.Stmt
	positionStmt     *sql.Stmt
	stmtMu           sync.Mutex

	// Shutdown coordination
	closed bool
	mu     sync.RWMutex
}

// NewJournal creates a traffic journal.
// The database must have the curtain_devices table created.
func NewJournal(db *sql.DB) *Journal {
	return &Journal{
		db: db,
	}
}

// Ensure Journal satisfies the coordinator's recorder hook.
var _ FrameRecorder = (*Journal)(nil)

// SetLogger sets the logger for the journal.
func (j *Journal) SetLogger(logger Logger) {
	j.logger = logger
}

// Start prepares the journal for use.
// Must be called before RecordFrame.
func (j *Journal) Start() error {
	j.stmtMu.Lock()
	defer j.stmtMu.Unlock()

	if j.deviceUpsertStmt != nil {
		return nil // Already started
	}

	deviceStmt, err := j.db.Prepare(`
		INSERT INTO curtain_devices (address, first_seen, last_seen, frame_count, last_function)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(address) DO UPDATE SET
			last_seen = excluded.last_seen,
			frame_count = frame_count + 1,
			last_function = excluded.last_function
	`)
	if err != nil {
		return fmt.Errorf("preparing device upsert statement: %w", err)
	}

	positionStmt, err := j.db.Prepare(`
		UPDATE curtain_devices SET last_position = ?, last_status_at = ? WHERE address = ?
	`)
	if err != nil {
		deviceStmt.Close()
		return fmt.Errorf("preparing position statement: %w", err)
	}

	j.deviceUpsertStmt = deviceStmt
	j.positionStmt = positionStmt
	j.log("traffic journal started")
	return nil
}

// Stop closes the journal and releases resources.
func (j *Journal) Stop() {
	j.mu.Lock()
	j.closed = true
	j.mu.Unlock()

	j.stmtMu.Lock()
	defer j.stmtMu.Unlock()

	if j.deviceUpsertStmt != nil {
		j.deviceUpsertStmt.Close()
		j.deviceUpsertStmt = nil
	}
	if j.positionStmt != nil {
		j.positionStmt.Close()
		j.positionStmt = nil
	}

	j.log("traffic journal stopped")
}

// RecordFrame records one observed frame. Called from the coordinator's
// worker pool for every valid frame, so it must never block on anything
// slower than the local database.
//
// Parameters:
//   - addr: Device address from the frame
//   - function: Function code (0x01 status, 0x03 control)
//   - dataAddr: Data address within the function
//   - data: Payload byte (raw, pre-normalization)
func (j *Journal) RecordFrame(addr DeviceAddress, function, dataAddr, data byte) {
	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()
		return
	}
	j.mu.RUnlock()

	j.stmtMu.Lock()
	deviceStmt := j.deviceUpsertStmt
	positionStmt := j.positionStmt
	j.stmtMu.Unlock()

	if deviceStmt == nil || positionStmt == nil {
		return // Not started
	}

	now := time.Now().Unix()
	key := addr.String()

	if _, err := deviceStmt.Exec(key, now, now, function); err != nil {
		j.logError("recording device", err)
		return
	}

	// Status frames also carry a position worth keeping.
	if function == FuncStatus && dataAddr == DataAddrStatus {
		position := NormalizePosition(int(data))
		if _, err := positionStmt.Exec(position, now, key); err != nil {
			j.logError("recording position", err)
		}
	}
}

// DeviceCount returns the number of devices ever seen on the link.
func (j *Journal) DeviceCount(ctx context.Context) (int, error) {
	var count int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM curtain_devices`).Scan(&count)
	return count, err
}

// LastSeen returns when a device last transmitted, or ok=false if the
// journal has never heard it.
func (j *Journal) LastSeen(ctx context.Context, addr DeviceAddress) (time.Time, bool, error) {
	var unix int64
	err := j.db.QueryRowContext(ctx,
		`SELECT last_seen FROM curtain_devices WHERE address = ?`, addr.String()).Scan(&unix)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(unix, 0), true, nil
}

// log logs an info message if logger is set.
func (j *Journal) log(msg string, keysAndValues ...any) {
	if j.logger != nil {
		j.logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error if logger is set.
func (j *Journal) logError(msg string, err error) {
	if j.logger != nil {
		j.logger.Error(msg, "error", err)
	}
}
