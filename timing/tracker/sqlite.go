package tracker

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// SQLiteRecorder writes completed trackers into a SQLite database.
type SQLiteRecorder struct {
	*sql.DB
	statement *sql.Stmt

	dbName    string
	pending   []*Tracker
	batchSize int
}

// NewSQLiteRecorder creates a recorder writing to path. If path is empty, a
// random name is used.
func NewSQLiteRecorder(path string) *SQLiteRecorder {
	r := &SQLiteRecorder{
		dbName:    path,
		batchSize: 10000,
	}

	atexit.Register(func() { r.Flush() })

	return r
}

// Init creates the database and the transaction table.
func (r *SQLiteRecorder) Init() error {
	if r.dbName == "" {
		r.dbName = "flexus_transactions_" + xid.New().String()
	}

	filename := r.dbName + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return fmt.Errorf("failed to open transaction database: %w", err)
	}
	r.DB = db

	_, err = r.Exec(`
		CREATE TABLE trans (
			context    TEXT,
			id         INTEGER,
			address    INTEGER,
			initiator  INTEGER,
			responder  INTEGER,
			source     TEXT,
			start      INTEGER,
			completion INTEGER,
			fill_level INTEGER,
			critical   INTEGER,
			wrong_path INTEGER,
			PRIMARY KEY (context, id)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create transaction table: %w", err)
	}

	r.statement, err = r.Prepare(`
		INSERT INTO trans VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	return nil
}

// Record buffers a completed tracker.
func (r *SQLiteRecorder) Record(t *Tracker) {
	r.pending = append(r.pending, t)
	if len(r.pending) >= r.batchSize {
		r.Flush()
	}
}

// Flush writes all the buffered trackers to the database.
func (r *SQLiteRecorder) Flush() {
	if len(r.pending) == 0 || r.DB == nil {
		return
	}

	r.mustExecute("BEGIN TRANSACTION")
	defer r.mustExecute("COMMIT TRANSACTION")

	for _, t := range r.pending {
		_, err := r.statement.Exec(
			t.ctx.Name(),
			t.ID(),
			nullable(t.Address()),
			nullable(t.Initiator()),
			nullable(t.Responder()),
			nullable(t.Source()),
			t.StartCycle(),
			nullable(t.CompletionCycle()),
			nullable(t.FillLevel()),
			nullable(t.CriticalPath()),
			nullable(t.WrongPath()),
		)
		if err != nil {
			panic(err)
		}
	}

	r.pending = nil
}

func (r *SQLiteRecorder) mustExecute(query string) {
	_, err := r.Exec(query)
	if err != nil {
		panic(fmt.Errorf("failed to execute %q: %w", query, err))
	}
}

func nullable[T any](v T, ok bool) any {
	if !ok {
		return nil
	}

	return v
}
