// Package record writes per-step simulation samples to a SQLite database.
package record

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/tebeka/atexit"

	"github.com/san-kum/fourbar/internal/config"
	"github.com/san-kum/fourbar/internal/sim"
)

const DefaultBatchSize = 1000

var ErrNoRun = errors.New("no run in progress")

type step struct {
	run   string
	index int
	t     float64
	theta float64
	omega float64
	u     float64
}

// Recorder buffers steps and writes them in batches. It implements
// sim.Observer so it can be attached to a Simulator or a Session.
type Recorder struct {
	db        *sql.DB
	path      string
	batchSize int

	mu       sync.Mutex
	runID    string
	index    int
	pending  []step
	stepStmt *sql.Stmt
	err      error
}

// Open creates or opens the database at path and registers a flush to run
// on atexit.Exit.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		db:        db,
		path:      path,
		batchSize: DefaultBatchSize,
	}
	if err := r.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	r.stepStmt, err = db.Prepare(`INSERT INTO steps (run_id, step, time, theta, omega, torque) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, err
	}

	atexit.Register(func() { _ = r.Flush() })

	return r, nil
}

func (r *Recorder) SetBatchSize(n int) {
	if n > 0 {
		r.batchSize = n
	}
}

func (r *Recorder) Path() string { return r.path }

func (r *Recorder) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs
		(
			run_id      VARCHAR(64) PRIMARY KEY,
			started     TIMESTAMP NOT NULL,
			integrator  VARCHAR(32) NOT NULL,
			dt          FLOAT NOT NULL,
			stiffness   FLOAT NOT NULL,
			damping     FLOAT NOT NULL,
			eq_angle    FLOAT NOT NULL,
			min_angle   FLOAT NOT NULL,
			max_angle   FLOAT NOT NULL,
			start_angle FLOAT NOT NULL,
			steps       INTEGER DEFAULT 0,
			clamps      INTEGER DEFAULT 0,
			settled     BOOLEAN DEFAULT 0,
			settled_at  FLOAT DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS steps
		(
			run_id VARCHAR(64) NOT NULL,
			step   INTEGER NOT NULL,
			time   FLOAT NOT NULL,
			theta  FLOAT NOT NULL,
			omega  FLOAT NOT NULL,
			torque FLOAT DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS steps_run_id_index ON steps (run_id);`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// StartRun flushes anything pending and opens a new run row.
func (r *Recorder) StartRun(runID string, cfg *config.Config) error {
	if err := r.Flush(); err != nil {
		return err
	}

	_, err := r.db.Exec(
		`INSERT INTO runs (run_id, started, integrator, dt, stiffness, damping, eq_angle, min_angle, max_angle, start_angle)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, time.Now(), cfg.Integrator, cfg.Dt,
		cfg.Drive.Stiffness, cfg.Drive.Damping, cfg.Drive.EqAngle,
		cfg.Drive.MinAngle, cfg.Drive.MaxAngle, cfg.Drive.StartAngle,
	)
	if err != nil {
		return fmt.Errorf("start run %s: %w", runID, err)
	}

	r.mu.Lock()
	r.runID = runID
	r.index = 0
	r.err = nil
	r.mu.Unlock()
	return nil
}

func (r *Recorder) OnStep(x sim.State, u sim.Control, t float64) {
	r.mu.Lock()
	if r.runID == "" {
		r.mu.Unlock()
		return
	}
	s := step{run: r.runID, index: r.index, t: t, theta: x[0], omega: x[1]}
	if len(u) > 0 {
		s.u = u[0]
	}
	r.index++
	r.pending = append(r.pending, s)
	full := len(r.pending) >= r.batchSize
	r.mu.Unlock()

	if full {
		if err := r.Flush(); err != nil {
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
		}
	}
}

// Flush writes all the buffered steps in one transaction.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt := tx.Stmt(r.stepStmt)
	for _, s := range r.pending {
		if _, err := stmt.Exec(s.run, s.index, s.t, s.theta, s.omega, s.u); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert step %d of %s: %w", s.index, s.run, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	r.pending = r.pending[:0]
	return nil
}

// FinishRun flushes the run's steps and stores its outcome.
func (r *Recorder) FinishRun(result *sim.Result) error {
	r.mu.Lock()
	runID, stepErr := r.runID, r.err
	r.mu.Unlock()

	if runID == "" {
		return ErrNoRun
	}
	if stepErr != nil {
		return stepErr
	}
	if err := r.Flush(); err != nil {
		return err
	}

	_, err := r.db.Exec(
		`UPDATE runs SET steps = ?, clamps = ?, settled = ?, settled_at = ? WHERE run_id = ?`,
		result.StepsTaken, result.Clamps, result.Settled, result.SettledAt, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}

	r.mu.Lock()
	r.runID = ""
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}
	r.stepStmt.Close()
	return r.db.Close()
}
