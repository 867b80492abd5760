package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/banshee-data/ancestry.report/internal/estimate"
	"github.com/banshee-data/ancestry.report/internal/monitoring"
	"github.com/banshee-data/ancestry.report/internal/segments"
)

// StoredResult is one row of the results table together with its
// per-d likelihood curve and segment list.
type StoredResult struct {
	ID       int64           `json:"id"`
	RunID    string          `json:"run_id"`
	Indiv1   string          `json:"indv1"`
	Indiv2   string          `json:"indv2"`
	DEst     *int            `json:"d_est"` // nil when not significantly related
	RelEst1  *string         `json:"rel_est1,omitempty"`
	RelEst2  *string         `json:"rel_est2,omitempty"`
	N        int             `json:"n"`
	TotalCM  float64         `json:"total_cm"`
	MaxLL    float64         `json:"max_ll"`
	NullLL   float64         `json:"null_ll"`
	LRT      float64         `json:"lrt"`
	PValue   float64         `json:"p_value"`
	LowerD   *int            `json:"lower_d,omitempty"`
	UpperD   *int            `json:"upper_d,omitempty"`
	NoShare  bool            `json:"no_sharing"`
	Created  time.Time       `json:"created"`
	Deleted  bool            `json:"deleted"`
	LLCurve  map[int]float64 `json:"lls,omitempty"`
	Segments []StoredSegment `json:"segments,omitempty"`
}

// StoredSegment is one segment row attached to a result.
type StoredSegment struct {
	Chromosome int     `json:"chromosome"`
	BPStart    int64   `json:"bp_start"`
	BPEnd      int64   `json:"bp_end"`
	LengthCM   float64 `json:"length_cm"`
}

// KeepPolicy decides which insignificant results are stored. Significant
// results are always stored.
type KeepPolicy struct {
	// KeepInsignificant stores every result, with a NULL d_est for
	// insignificant ones.
	KeepInsignificant bool
	// MinTotalCM keeps an insignificant result whose total shared length
	// reaches the threshold. Zero disables.
	MinTotalCM float64
	// MinSegments/MinSegmentCM keep an insignificant result with at least
	// MinSegments segments longer than MinSegmentCM. Zero MinSegments
	// disables.
	MinSegments  int
	MinSegmentCM float64
}

// Keep reports whether a result should be stored under the policy.
func (p KeepPolicy) Keep(res *estimate.Result, segs []segments.Segment) bool {
	if res.Related || p.KeepInsignificant {
		return true
	}
	if p.MinTotalCM > 0 && res.TotalCM >= p.MinTotalCM {
		return true
	}
	if p.MinSegments > 0 {
		count := 0
		for _, s := range segs {
			if s.LengthCM > p.MinSegmentCM {
				count++
			}
		}
		if count >= p.MinSegments {
			return true
		}
	}
	return false
}

// InsertBatch stores a batch of estimates. For every stored pair, previous
// live rows for the same unordered pair are soft-deleted first, so history
// reads as an append-only log with a superseded flag rather than in-place
// mutation. The whole batch commits in one transaction.
//
// segLists maps each pair to the raw segments backing its statistic; pairs
// without an entry are stored without segment rows.
func (db *DB) InsertBatch(batch *estimate.Batch, segLists map[segments.PairKey][]segments.Segment, policy KeepPolicy) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin insert transaction: %w", err)
	}
	defer tx.Rollback()

	stored := 0
	superseded := 0
	for _, res := range batch.Results {
		segs := segLists[res.Pair]
		if !policy.Keep(res, segs) {
			continue
		}

		n, err := softDeletePair(tx, res.Indiv1, res.Indiv2)
		if err != nil {
			return 0, err
		}
		superseded += n

		if err := insertResult(tx, batch.RunID, res, segs); err != nil {
			return 0, err
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insert transaction: %w", err)
	}
	if superseded > 0 {
		monitoring.Logf("superseded %d previous result(s)", superseded)
	}
	return stored, nil
}

func softDeletePair(tx *sql.Tx, indv1, indv2 string) (int, error) {
	res, err := tx.Exec(`
		UPDATE results SET deleted = 1
		WHERE deleted = 0
		  AND ((indv1 = ? AND indv2 = ?) OR (indv1 = ? AND indv2 = ?))`,
		indv1, indv2, indv2, indv1)
	if err != nil {
		return 0, fmt.Errorf("failed to soft-delete pair %s:%s: %w", indv1, indv2, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func insertResult(tx *sql.Tx, runID string, res *estimate.Result, segs []segments.Segment) error {
	var dEst, lowerD, upperD interface{}
	var relEst1, relEst2 interface{}
	if res.Related {
		dEst = res.D
		if res.RelEst1 != "" {
			relEst1 = res.RelEst1
		}
		if res.RelEst2 != "" {
			relEst2 = res.RelEst2
		}
	}
	if res.LowerD != 0 || res.UpperD != 0 {
		lowerD, upperD = res.LowerD, res.UpperD
	}

	row, err := tx.Exec(`
		INSERT INTO results (
			run_id, indv1, indv2, d_est, rel_est1, rel_est2,
			n, total_cm, max_ll, null_ll, lrt, p_value,
			lower_d, upper_d, no_sharing
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Indiv1, res.Indiv2, dEst, relEst1, relEst2,
		res.N, res.TotalCM, res.MaxLogLik, res.NullLogLik, res.LRT, res.PValue,
		lowerD, upperD, res.NoSharing)
	if err != nil {
		return fmt.Errorf("failed to insert result for %s: %w", res.Pair, err)
	}
	resultID, err := row.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get result ID for %s: %w", res.Pair, err)
	}

	for _, alt := range res.Likelihoods {
		if _, err := tx.Exec(`INSERT INTO likelihoods (result_id, d, ll) VALUES (?, ?, ?)`,
			resultID, alt.D, alt.LogLik); err != nil {
			return fmt.Errorf("failed to insert likelihood for %s: %w", res.Pair, err)
		}
	}
	for _, seg := range segs {
		if _, err := tx.Exec(`INSERT INTO segments (result_id, chromosome, bp_start, bp_end, length_cm) VALUES (?, ?, ?, ?, ?)`,
			resultID, seg.Chromosome, seg.BPStart, seg.BPEnd, seg.LengthCM); err != nil {
			return fmt.Errorf("failed to insert segment for %s: %w", res.Pair, err)
		}
	}
	return nil
}

// ListResults returns live (non-superseded) results, newest first, capped
// at limit (<= 0 means no cap).
func (db *DB) ListResults(limit int) ([]StoredResult, error) {
	query := `
		SELECT id, run_id, indv1, indv2, d_est, rel_est1, rel_est2,
		       n, total_cm, max_ll, null_ll, lrt, p_value,
		       lower_d, upper_d, no_sharing, created, deleted
		FROM results WHERE deleted = 0 ORDER BY created DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetPairResult returns the live result for an unordered pair, with its
// likelihood curve and segment rows attached. sql.ErrNoRows when absent.
func (db *DB) GetPairResult(indv1, indv2 string) (*StoredResult, error) {
	rows, err := db.Query(`
		SELECT id, run_id, indv1, indv2, d_est, rel_est1, rel_est2,
		       n, total_cm, max_ll, null_ll, lrt, p_value,
		       lower_d, upper_d, no_sharing, created, deleted
		FROM results
		WHERE deleted = 0
		  AND ((indv1 = ? AND indv2 = ?) OR (indv1 = ? AND indv2 = ?))
		ORDER BY created DESC, id DESC LIMIT 1`,
		indv1, indv2, indv2, indv1)
	if err != nil {
		return nil, fmt.Errorf("failed to query pair result: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	r, err := scanResult(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()

	if err := db.attachDetails(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) attachDetails(r *StoredResult) error {
	llRows, err := db.Query(`SELECT d, ll FROM likelihoods WHERE result_id = ? ORDER BY d`, r.ID)
	if err != nil {
		return fmt.Errorf("failed to query likelihoods: %w", err)
	}
	defer llRows.Close()
	r.LLCurve = make(map[int]float64)
	for llRows.Next() {
		var d int
		var ll float64
		if err := llRows.Scan(&d, &ll); err != nil {
			return err
		}
		r.LLCurve[d] = ll
	}
	if err := llRows.Err(); err != nil {
		return err
	}

	segRows, err := db.Query(`SELECT chromosome, bp_start, bp_end, length_cm FROM segments WHERE result_id = ? ORDER BY chromosome, bp_start`, r.ID)
	if err != nil {
		return fmt.Errorf("failed to query segments: %w", err)
	}
	defer segRows.Close()
	for segRows.Next() {
		var s StoredSegment
		if err := segRows.Scan(&s.Chromosome, &s.BPStart, &s.BPEnd, &s.LengthCM); err != nil {
			return err
		}
		r.Segments = append(r.Segments, s)
	}
	return segRows.Err()
}

func scanResult(rows *sql.Rows) (StoredResult, error) {
	var r StoredResult
	var dEst, lowerD, upperD sql.NullInt64
	var rel1, rel2 sql.NullString
	err := rows.Scan(&r.ID, &r.RunID, &r.Indiv1, &r.Indiv2, &dEst, &rel1, &rel2,
		&r.N, &r.TotalCM, &r.MaxLL, &r.NullLL, &r.LRT, &r.PValue,
		&lowerD, &upperD, &r.NoShare, &r.Created, &r.Deleted)
	if err != nil {
		return r, fmt.Errorf("failed to scan result row: %w", err)
	}
	if dEst.Valid {
		v := int(dEst.Int64)
		r.DEst = &v
	}
	if lowerD.Valid {
		v := int(lowerD.Int64)
		r.LowerD = &v
	}
	if upperD.Valid {
		v := int(upperD.Int64)
		r.UpperD = &v
	}
	if rel1.Valid {
		r.RelEst1 = &rel1.String
	}
	if rel2.Valid {
		r.RelEst2 = &rel2.String
	}
	return r, nil
}

// PurgeDeleted physically removes soft-deleted results and their dependent
// likelihood and segment rows. Pure housekeeping; the live data set is
// untouched.
func (db *DB) PurgeDeleted() (results, likelihoods, segs int, err error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to begin purge transaction: %w", err)
	}
	defer tx.Rollback()

	count := func(q string) (int, error) {
		res, err := tx.Exec(q)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		return int(n), err
	}

	if likelihoods, err = count(`DELETE FROM likelihoods WHERE result_id IN (SELECT id FROM results WHERE deleted = 1)`); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to purge likelihoods: %w", err)
	}
	if segs, err = count(`DELETE FROM segments WHERE result_id IN (SELECT id FROM results WHERE deleted = 1)`); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to purge segments: %w", err)
	}
	if results, err = count(`DELETE FROM results WHERE deleted = 1`); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to purge results: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to commit purge: %w", err)
	}
	return results, likelihoods, segs, nil
}
