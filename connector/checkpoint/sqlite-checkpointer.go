/*
 * Copyright (c) 2024 openFDA Labs
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
 * associated documentation files (the "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is furnished to do
 * so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all copies or substantial
 * portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
 * NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
 * WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */
package checkpoint

import (
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/openfda-labs/go-fda-connector/connector/interfaces"
	"github.com/openfda-labs/go-fda-connector/logger"
)

const createCheckpointTable = `
CREATE TABLE IF NOT EXISTS sync_checkpoint (
	endpoint_key TEXT PRIMARY KEY,
	skip         INTEGER NOT NULL,
	updated_at   TEXT NOT NULL
)`

// SQLiteCheckpointer implements the Checkpointer interface on a local
// SQLite file. The default backend for single host deployments.
type SQLiteCheckpointer struct {
	log  logger.Logger
	path string
	db   *sql.DB
}

func NewSQLiteCheckpointer(path string, log logger.Logger) *SQLiteCheckpointer {
	return &SQLiteCheckpointer{
		log:  log,
		path: path,
	}
}

// Init opens the database and creates the checkpoint table if needed
func (checkpointer *SQLiteCheckpointer) Init() error {
	db, err := sql.Open("sqlite", checkpointer.path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return err
	}
	if _, err := db.Exec(createCheckpointTable); err != nil {
		db.Close()
		return err
	}
	checkpointer.db = db
	return nil
}

// FetchCheckpoint retrieves the saved state for the given endpoint
func (checkpointer *SQLiteCheckpointer) FetchCheckpoint(endpointKey string) (interfaces.State, error) {
	var skip int
	err := checkpointer.db.QueryRow(
		`SELECT skip FROM sync_checkpoint WHERE endpoint_key = ?`, endpointKey).Scan(&skip)
	if errors.Is(err, sql.ErrNoRows) {
		return interfaces.State{}, ErrCheckpointNotFound
	}
	if err != nil {
		return interfaces.State{}, err
	}
	checkpointer.log.Debugf("Retrieved checkpoint for %v. Skip: %d", endpointKey, skip)
	return interfaces.State{Skip: skip}, nil
}

// SaveCheckpoint persists the state for the given endpoint
func (checkpointer *SQLiteCheckpointer) SaveCheckpoint(endpointKey string, state interfaces.State) error {
	_, err := checkpointer.db.Exec(
		`INSERT INTO sync_checkpoint (endpoint_key, skip, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(endpoint_key) DO UPDATE SET skip = excluded.skip, updated_at = excluded.updated_at`,
		endpointKey, state.Skip, time.Now().UTC().Format(time.RFC3339))
	return err
}

// RemoveCheckpoint deletes the saved state, forcing a full resync
func (checkpointer *SQLiteCheckpointer) RemoveCheckpoint(endpointKey string) error {
	_, err := checkpointer.db.Exec(`DELETE FROM sync_checkpoint WHERE endpoint_key = ?`, endpointKey)
	return err
}

// Close releases the underlying database handle.
func (checkpointer *SQLiteCheckpointer) Close() error {
	if checkpointer.db == nil {
		return nil
	}
	return checkpointer.db.Close()
}
