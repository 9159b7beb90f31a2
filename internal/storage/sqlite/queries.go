package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/overlap/internal/query"
	"github.com/google/uuid"
)

// QueryRecord is one persisted overlap query and its verdict.
type QueryRecord struct {
	QueryID   string       `json:"query_id"`
	RunID     string       `json:"run_id"`
	Camera    string       `json:"camera"`
	Mode      query.Mode   `json:"mode"`
	Points    [][2]float64 `json:"points"`
	Proven    []string     `json:"proven"`
	Assumed   []string     `json:"assumed"`
	CreatedAt int64        `json:"created_at"`
}

// RecordFromResult builds a QueryRecord for res under runID.
func RecordFromResult(runID string, res *query.Result) *QueryRecord {
	rec := &QueryRecord{
		RunID:   runID,
		Camera:  res.Camera,
		Mode:    res.Mode,
		Proven:  nonNil(res.Proven),
		Assumed: nonNil(res.Assumed),
	}
	for _, p := range res.Points {
		rec.Points = append(rec.Points, p.Point)
	}
	return rec
}

// InsertQuery persists a query record. If QueryID is empty, a UUID is
// generated.
func (s *Store) InsertQuery(rec *QueryRecord) error {
	if rec.QueryID == "" {
		rec.QueryID = uuid.New().String()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixNano()
	}
	points, err := json.Marshal(rec.Points)
	if err != nil {
		return fmt.Errorf("marshal points: %w", err)
	}
	proven, err := json.Marshal(nonNil(rec.Proven))
	if err != nil {
		return fmt.Errorf("marshal proven: %w", err)
	}
	assumed, err := json.Marshal(nonNil(rec.Assumed))
	if err != nil {
		return fmt.Errorf("marshal assumed: %w", err)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO overlap_queries (query_id, run_id, camera, mode, points_json, proven_json, assumed_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.QueryID, rec.RunID, rec.Camera, string(rec.Mode),
			string(points), string(proven), string(assumed), rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert query: %w", err)
		}
		return nil
	})
}

// ListQueries returns the queries recorded against a run, oldest first.
func (s *Store) ListQueries(runID string) ([]*QueryRecord, error) {
	rows, err := s.db.Query(`
		SELECT query_id, run_id, camera, mode, points_json, proven_json, assumed_json, created_at
		FROM overlap_queries
		WHERE run_id = ?
		ORDER BY created_at ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query overlap_queries: %w", err)
	}
	defer rows.Close()

	var out []*QueryRecord
	for rows.Next() {
		var rec QueryRecord
		var mode, points, proven, assumed string
		if err := rows.Scan(&rec.QueryID, &rec.RunID, &rec.Camera, &mode, &points, &proven, &assumed, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		rec.Mode = query.Mode(mode)
		if err := json.Unmarshal([]byte(points), &rec.Points); err != nil {
			return nil, fmt.Errorf("decode points of query %s: %w", rec.QueryID, err)
		}
		if err := json.Unmarshal([]byte(proven), &rec.Proven); err != nil {
			return nil, fmt.Errorf("decode proven of query %s: %w", rec.QueryID, err)
		}
		if err := json.Unmarshal([]byte(assumed), &rec.Assumed); err != nil {
			return nil, fmt.Errorf("decode assumed of query %s: %w", rec.QueryID, err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
