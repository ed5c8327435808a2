package results

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/funvibe/simstream/internal/sim"
)

// Archive is secondary storage for history steps, so long runs can trim
// in-memory history without losing the stream. One database holds many
// runs, keyed by run id.
type Archive struct {
	db *sql.DB
}

const archiveSchema = `
CREATE TABLE IF NOT EXISTS steps (
	run_id      TEXT    NOT NULL,
	seq         INTEGER NOT NULL,
	operator_id TEXT    NOT NULL,
	output      TEXT    NOT NULL,
	state       TEXT    NOT NULL,
	PRIMARY KEY (run_id, seq)
);`

// OpenArchive opens (and initialises) an archive database.
func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising archive %s: %w", path, err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error { return a.db.Close() }

// AppendSteps stores steps under runID starting at sequence number
// startSeq. State snapshots serialise as JSON with the cyclic handle
// dropped.
func (a *Archive) AppendSteps(runID string, startSeq int, steps []*sim.HistoryStep) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("archive append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO steps (run_id, seq, operator_id, output, state) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("archive append: %w", err)
	}
	defer stmt.Close()

	for i, step := range steps {
		stateJSON, err := json.Marshal(stateToGo(step.State))
		if err != nil {
			return fmt.Errorf("archive append: encoding state: %w", err)
		}
		if _, err := stmt.Exec(runID, startSeq+i, step.OperatorID, strings.Join(step.Output, "\n"), string(stateJSON)); err != nil {
			return fmt.Errorf("archive append: %w", err)
		}
	}
	return tx.Commit()
}

// ArchivedStep is a history step read back from secondary storage.
type ArchivedStep struct {
	Seq        int
	OperatorID string
	Output     []string
	State      map[string]interface{}
}

// LoadRun reads a run's steps back in sequence order.
func (a *Archive) LoadRun(runID string) ([]ArchivedStep, error) {
	rows, err := a.db.Query(`SELECT seq, operator_id, output, state FROM steps WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("archive load: %w", err)
	}
	defer rows.Close()

	var steps []ArchivedStep
	for rows.Next() {
		var step ArchivedStep
		var output, stateJSON string
		if err := rows.Scan(&step.Seq, &step.OperatorID, &output, &stateJSON); err != nil {
			return nil, fmt.Errorf("archive load: %w", err)
		}
		if output != "" {
			step.Output = strings.Split(output, "\n")
		}
		if err := json.Unmarshal([]byte(stateJSON), &step.State); err != nil {
			return nil, fmt.Errorf("archive load: decoding state: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// Runs lists the run ids present in the archive.
func (a *Archive) Runs() ([]string, error) {
	rows, err := a.db.Query(`SELECT DISTINCT run_id FROM steps ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("archive runs: %w", err)
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}
