package storage

import (
	"database/sql"
	"time"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// ListRuns returns a lightweight list of runs with counts.
func (db *DB) ListRuns(limit, offset int) ([]RunRow, error) {
	const q = `
		SELECT r.id, r.started_at, r.root, r.catalog_version, r.incomplete,
		       (SELECT COUNT(1) FROM findings f WHERE f.run_id = r.id) AS findings
		  FROM runs r
		 ORDER BY r.started_at DESC, r.id DESC
		 LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var rr RunRow
		var startedAtStr string
		var incomplete int
		if err := rows.Scan(&rr.ID, &startedAtStr, &rr.Root, &rr.CatalogVersion, &incomplete, &rr.Findings); err != nil {
			return nil, err
		}
		rr.Incomplete = incomplete != 0
		// Parse RFC3339Nano first, fallback to RFC3339
		if t, err := time.Parse(time.RFC3339Nano, startedAtStr); err == nil {
			rr.StartedAt = t
		} else if t2, err2 := time.Parse(time.RFC3339, startedAtStr); err2 == nil {
			rr.StartedAt = t2
		} else {
			// leave zero time if unparsable (shouldn't happen)
			rr.StartedAt = time.Time{}
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

const sevRank = `(CASE severity
	WHEN 'CRITICAL' THEN 5
	WHEN 'HIGH'     THEN 4
	WHEN 'MEDIUM'   THEN 3
	WHEN 'LOW'      THEN 2
	ELSE 1 END)`

const sevRankParam = `(CASE ?
	WHEN 'CRITICAL' THEN 5
	WHEN 'HIGH'     THEN 4
	WHEN 'MEDIUM'   THEN 3
	WHEN 'LOW'      THEN 2
	ELSE 1 END)`

// ListFindings returns findings for a run at or above a minimum severity.
func (db *DB) ListFindings(runID, minSeverity string) ([]ir.Finding, error) {
	q := `
		SELECT rule_id, category, severity, path, location, line, message
		  FROM findings
		 WHERE run_id = ?
		   AND ` + sevRank + ` >= ` + sevRankParam + `
		 ORDER BY ` + sevRank + ` DESC, category, path, location, rule_id`
	rows, err := db.conn.Query(q, runID, minSeverity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ir.Finding
	for rows.Next() {
		var f ir.Finding
		var sev string
		if err := rows.Scan(&f.RuleID, &f.Category, &sev, &f.Path, &f.Location, &f.Line, &f.Message); err != nil {
			return nil, err
		}
		f.Severity = ir.Severity(sev)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Optional helper used by API endpoints.
func (db *DB) HasRun(id string) (bool, error) {
	const q = `SELECT 1 FROM runs WHERE id = ? LIMIT 1`
	var one int
	err := db.conn.QueryRow(q, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
