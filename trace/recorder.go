// Package trace records cache access events into a SQLite database.
package trace

import (
	"database/sql"
	"fmt"
	"log"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/rvsim/timing/cache"
)

const defaultBatchSize = 10000

const createTable = `CREATE TABLE IF NOT EXISTS cache_access (
	run_id      TEXT    NOT NULL,
	cycle       INTEGER NOT NULL,
	cache       TEXT    NOT NULL,
	kind        TEXT    NOT NULL,
	addr        INTEGER NOT NULL,
	tag         INTEGER NOT NULL,
	hit         INTEGER NOT NULL,
	evicted     INTEGER NOT NULL,
	evicted_tag INTEGER NOT NULL,
	wait        INTEGER NOT NULL
)`

const insertAccess = `INSERT INTO cache_access
	(run_id, cycle, cache, kind, addr, tag, hit, evicted, evicted_tag, wait)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Summary aggregates the recorded accesses of one cache.
type Summary struct {
	Cache     string
	Accesses  uint64
	Hits      uint64
	Evictions uint64
}

// AccessRecorder is a hook that buffers cache.AccessEvent items and writes
// them to SQLite in batches. Every recorder tags its rows with a unique run
// ID, so several runs can share one database.
type AccessRecorder struct {
	*sql.DB
	statement *sql.Stmt

	path      string
	runID     string
	batchSize int
	pending   []cache.AccessEvent
	written   uint64
}

// NewAccessRecorder opens, or creates, the database at path. An empty path
// picks a fresh file name in the working directory. Buffered events are
// flushed when the program exits through atexit.
func NewAccessRecorder(path string) (*AccessRecorder, error) {
	runID := xid.New().String()
	if path == "" {
		path = "rvsim_trace_" + runID + ".sqlite3"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open trace database %s: %w", path, err)
	}

	r, err := newRecorder(db, runID)
	if err != nil {
		db.Close()
		return nil, err
	}
	r.path = path

	atexit.Register(func() {
		if err := r.Flush(); err != nil {
			log.Printf("flush trace: %v", err)
		}
	})

	return r, nil
}

// NewAccessRecorderWithDB records into an already opened database.
func NewAccessRecorderWithDB(db *sql.DB) (*AccessRecorder, error) {
	return newRecorder(db, xid.New().String())
}

func newRecorder(db *sql.DB, runID string) (*AccessRecorder, error) {
	if _, err := db.Exec(createTable); err != nil {
		return nil, fmt.Errorf("create trace table: %w", err)
	}

	stmt, err := db.Prepare(insertAccess)
	if err != nil {
		return nil, fmt.Errorf("prepare trace insert: %w", err)
	}

	return &AccessRecorder{
		DB:        db,
		statement: stmt,
		runID:     runID,
		batchSize: defaultBatchSize,
	}, nil
}

// SetBatchSize sets how many events are buffered before a flush.
func (r *AccessRecorder) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	r.batchSize = n
}

// RunID returns the ID stamped on every row of this recorder.
func (r *AccessRecorder) RunID() string {
	return r.runID
}

// Path returns the database file, or "" when the database was supplied.
func (r *AccessRecorder) Path() string {
	return r.path
}

// Pending returns the number of buffered events.
func (r *AccessRecorder) Pending() int {
	return len(r.pending)
}

// Written returns the number of events written to the database.
func (r *AccessRecorder) Written() uint64 {
	return r.written
}

// Func implements sim.Hook. It ignores items other than cache accesses.
func (r *AccessRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	ev, ok := ctx.Item.(cache.AccessEvent)
	if !ok {
		return
	}

	r.pending = append(r.pending, ev)
	if len(r.pending) >= r.batchSize {
		if err := r.Flush(); err != nil {
			log.Panicf("flush trace: %v", err)
		}
	}
}

// Flush writes all buffered events in one transaction.
func (r *AccessRecorder) Flush() error {
	if len(r.pending) == 0 {
		return nil
	}

	tx, err := r.Begin()
	if err != nil {
		return err
	}

	stmt := tx.Stmt(r.statement)
	for _, ev := range r.pending {
		_, err := stmt.Exec(
			r.runID,
			ev.Cycle,
			ev.Cache,
			ev.Kind.String(),
			ev.Addr,
			ev.Tag,
			ev.Hit,
			ev.Evicted,
			ev.EvictedTag,
			ev.WaitCycles,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert access at cycle %d: %w", ev.Cycle, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	r.written += uint64(len(r.pending))
	r.pending = nil

	return nil
}

// Summaries flushes pending events and aggregates this run's rows per
// cache, ordered by cache name.
func (r *AccessRecorder) Summaries() ([]Summary, error) {
	if err := r.Flush(); err != nil {
		return nil, err
	}

	rows, err := r.Query(`SELECT cache, COUNT(*), SUM(hit), SUM(evicted)
		FROM cache_access WHERE run_id = ? GROUP BY cache ORDER BY cache`,
		r.runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.Cache, &s.Accesses, &s.Hits, &s.Evictions); err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

// Close flushes pending events and closes the database.
func (r *AccessRecorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}
	r.statement.Close()
	return r.DB.Close()
}
