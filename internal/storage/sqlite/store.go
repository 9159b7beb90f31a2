package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/overlap/internal/boundary"
	"github.com/banshee-data/overlap/internal/overlap"
	"github.com/banshee-data/overlap/internal/strip"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run is one persisted pipeline pass.
type Run struct {
	RunID      string          `json:"run_id"`
	SequenceID string          `json:"sequence_id"`
	FrameID    string          `json:"frame_id"`
	Cameras    []string        `json:"cameras"`
	ParamsJSON json.RawMessage `json:"params_json,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}

// Store provides persistence for overlap runs.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// InsertRun persists a new run. If RunID is empty, a UUID is generated.
func (s *Store) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}
	cams, err := json.Marshal(nonNil(run.Cameras))
	if err != nil {
		return fmt.Errorf("marshal cameras: %w", err)
	}
	var params interface{}
	if len(run.ParamsJSON) > 0 {
		params = string(run.ParamsJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO overlap_runs (run_id, sequence_id, frame_id, cameras_json, params_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.RunID, run.SequenceID, run.FrameID, string(cams), params, run.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return nil
	})
}

// GetRun returns a single run by ID.
func (s *Store) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, sequence_id, frame_id, cameras_json, params_json, created_at
		FROM overlap_runs
		WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	return r, nil
}

// ListRuns returns the runs ordered by creation time descending. A
// positive limit caps the result.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	q := `
		SELECT run_id, sequence_id, frame_id, cameras_json, params_json, created_at
		FROM overlap_runs
		ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LatestRun returns the newest run for a sequence frame.
func (s *Store) LatestRun(sequenceID, frameID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, sequence_id, frame_id, cameras_json, params_json, created_at
		FROM overlap_runs
		WHERE sequence_id = ? AND frame_id = ?
		ORDER BY created_at DESC
		LIMIT 1`, sequenceID, frameID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", ErrRunNotFound, sequenceID, frameID)
		}
		return nil, err
	}
	return r, nil
}

// DeleteRun removes a run and everything recorded under it.
func (s *Store) DeleteRun(runID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM overlap_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var cams string
	var params sql.NullString
	if err := row.Scan(&r.RunID, &r.SequenceID, &r.FrameID, &cams, &params, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(cams), &r.Cameras); err != nil {
		return nil, fmt.Errorf("decode cameras of run %s: %w", r.RunID, err)
	}
	if params.Valid {
		r.ParamsJSON = json.RawMessage(params.String)
	}
	return &r, nil
}

// SaveRelation stores the overlap relation of a run. Pairs listed in
// repaired are flagged as added by the symmetry repair.
func (s *Store) SaveRelation(runID string, rel overlap.Relation, repaired []overlap.Pair) error {
	isRepaired := make(map[overlap.Pair]bool, len(repaired))
	for _, p := range repaired {
		isRepaired[p] = true
	}
	return s.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO overlap_relations (run_id, camera, neighbour, repaired) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare relation insert: %w", err)
		}
		defer stmt.Close()
		for cam, list := range rel {
			for _, n := range list {
				if _, err := stmt.Exec(runID, cam, n, isRepaired[overlap.Pair{Source: cam, Target: n}]); err != nil {
					return fmt.Errorf("insert relation %s-%s: %w", cam, n, err)
				}
			}
		}
		return nil
	})
}

// LoadRelation returns the overlap relation of a run. Every run camera has
// an entry, empty when it overlaps nothing.
func (s *Store) LoadRelation(runID string) (overlap.Relation, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return nil, err
	}
	rel := make(overlap.Relation, len(run.Cameras))
	for _, c := range run.Cameras {
		rel[c] = []string{}
	}

	rows, err := s.db.Query(`SELECT camera, neighbour FROM overlap_relations WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query relation: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cam, n string
		if err := rows.Scan(&cam, &n); err != nil {
			return nil, fmt.Errorf("scan relation row: %w", err)
		}
		rel.Add(cam, n)
	}
	return rel, rows.Err()
}

// SaveBoundaryPoints stores the raw 3D strips of a run.
func (s *Store) SaveBoundaryPoints(runID string, strips boundary.Strips) error {
	return s.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO overlap_boundary_points (run_id, strip_id, seq, x, y, z) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare boundary insert: %w", err)
		}
		defer stmt.Close()
		for _, id := range strips.IDs() {
			for i, p := range strips[id] {
				if _, err := stmt.Exec(runID, id.String(), i, p.X, p.Y, p.Z); err != nil {
					return fmt.Errorf("insert boundary point %s[%d]: %w", id, i, err)
				}
			}
		}
		return nil
	})
}

// LoadBoundaryPoints returns the raw 3D strips of a run in extraction order.
func (s *Store) LoadBoundaryPoints(runID string) (boundary.Strips, error) {
	rows, err := s.db.Query(`
		SELECT strip_id, x, y, z FROM overlap_boundary_points
		WHERE run_id = ?
		ORDER BY strip_id, seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query boundary points: %w", err)
	}
	defer rows.Close()

	out := make(boundary.Strips)
	for rows.Next() {
		var text string
		var p r3.Vec
		if err := rows.Scan(&text, &p.X, &p.Y, &p.Z); err != nil {
			return nil, fmt.Errorf("scan boundary point: %w", err)
		}
		id, err := strip.ParseID(text)
		if err != nil {
			return nil, err
		}
		out[id] = append(out[id], p)
	}
	return out, rows.Err()
}

// SaveFrame stores the image strips of every camera of a run.
func (s *Store) SaveFrame(runID string, frame strip.Frame) error {
	return s.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO overlap_image_strips (run_id, image_camera, strip_id, seq, x, y, synthetic)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare strip insert: %w", err)
		}
		defer stmt.Close()
		for _, cam := range frame.Cameras() {
			img := frame[cam]
			for _, id := range img.IDs() {
				for i, p := range img[id] {
					if _, err := stmt.Exec(runID, cam, id.String(), i, p.X, p.Y, p.Synthetic); err != nil {
						return fmt.Errorf("insert strip point %s/%s[%d]: %w", cam, id, i, err)
					}
				}
			}
		}
		return nil
	})
}

// LoadFrame returns the image strips of a run. Every run camera has an
// entry, empty when no strip reached its image.
func (s *Store) LoadFrame(runID string) (strip.Frame, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return nil, err
	}
	frame := make(strip.Frame, len(run.Cameras))
	for _, c := range run.Cameras {
		frame[c] = strip.Image{}
	}
	if err := s.loadStrips(frame, `WHERE run_id = ?`, runID); err != nil {
		return nil, err
	}
	return frame, nil
}

// LoadImage returns the strips projected into one camera image of a run.
func (s *Store) LoadImage(runID, camera string) (strip.Image, error) {
	frame := strip.Frame{camera: strip.Image{}}
	if err := s.loadStrips(frame, `WHERE run_id = ? AND image_camera = ?`, runID, camera); err != nil {
		return nil, err
	}
	return frame[camera], nil
}

func (s *Store) loadStrips(frame strip.Frame, where string, args ...interface{}) error {
	rows, err := s.db.Query(`
		SELECT image_camera, strip_id, x, y, synthetic FROM overlap_image_strips
		`+where+`
		ORDER BY image_camera, strip_id, seq`, args...)
	if err != nil {
		return fmt.Errorf("query image strips: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cam, text string
		var p strip.Point
		if err := rows.Scan(&cam, &text, &p.X, &p.Y, &p.Synthetic); err != nil {
			return fmt.Errorf("scan strip point: %w", err)
		}
		id, err := strip.ParseID(text)
		if err != nil {
			return err
		}
		img, ok := frame[cam]
		if !ok {
			img = strip.Image{}
			frame[cam] = img
		}
		img[id] = append(img[id], p)
	}
	return rows.Err()
}

func (s *Store) inTx(fn func(tx *sql.Tx) error) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sortedCopy(s []string) []string {
	out := append([]string{}, s...)
	sort.Strings(out)
	return out
}
