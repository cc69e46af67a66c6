package database

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// CreateScanLog inserts the audit row for a starting scan and returns
// its ID. The row begins in the "scanning" state.
func (db *Database) CreateScanLog(folders []string) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO scan_logs (id, folder_path, status) VALUES (?, ?, 'scanning')",
		id, strings.Join(folders, ";"))
	if err != nil {
		return "", err
	}
	return id, nil
}

// CompleteScanLog transitions the audit row to "completed" with final
// counters and serialized per-file errors.
func (db *Database) CompleteScanLog(id string, filesFound, filesAdded int, errs []string) error {
	var blob interface{}
	if len(errs) > 0 {
		b, err := json.Marshal(errs)
		if err != nil {
			return err
		}
		blob = string(b)
	}

	_, err := db.conn.Exec(`
		UPDATE scan_logs
		SET status = 'completed', files_found = ?, files_added = ?, errors = ?,
			finished_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		filesFound, filesAdded, blob, id)
	return err
}

// FailScanLog marks the audit row failed. Only a fatal, unrecoverable
// error (catalog unreachable) takes this path; per-file errors never do.
func (db *Database) FailScanLog(id string, reason string) error {
	blob, err := json.Marshal([]string{reason})
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(`
		UPDATE scan_logs
		SET status = 'failed', errors = ?, finished_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		string(blob), id)
	return err
}
