package sqlite

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/banshee-data/overlap/internal/boundary"
	"github.com/banshee-data/overlap/internal/overlap"
	"github.com/banshee-data/overlap/internal/pipeline"
	"github.com/banshee-data/overlap/internal/strip"
)

// Recorder persists pipeline stage outputs. It creates a run when the
// overlap relation arrives and attaches later stages to that run.
type Recorder struct {
	store  *Store
	params json.RawMessage

	mu    sync.Mutex
	runID string
}

var _ pipeline.Observer = (*Recorder)(nil)

// NewRecorder returns a Recorder writing to store. params, when non-nil,
// is stored as the run's parameter snapshot.
func NewRecorder(store *Store, params interface{}) (*Recorder, error) {
	r := &Recorder{store: store}
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal run params: %w", err)
		}
		r.params = b
	}
	return r, nil
}

// RunID returns the id of the most recently created run.
func (r *Recorder) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

func (r *Recorder) OverlapDetected(key pipeline.FrameKey, rel overlap.Relation, report *overlap.Report) error {
	cameras := make([]string, 0, len(rel))
	for cam := range rel {
		cameras = append(cameras, cam)
	}
	run := &Run{
		SequenceID: key.Sequence,
		FrameID:    key.Frame,
		Cameras:    sortedCopy(cameras),
		ParamsJSON: r.params,
	}
	if err := r.store.InsertRun(run); err != nil {
		return err
	}
	r.mu.Lock()
	r.runID = run.RunID
	r.mu.Unlock()

	var repaired []overlap.Pair
	if report != nil {
		repaired = report.Repaired
	}
	return r.store.SaveRelation(run.RunID, rel, repaired)
}

func (r *Recorder) StripsExtracted(key pipeline.FrameKey, strips boundary.Strips) error {
	runID, err := r.current(key)
	if err != nil {
		return err
	}
	return r.store.SaveBoundaryPoints(runID, strips)
}

func (r *Recorder) StripsProjected(key pipeline.FrameKey, frame strip.Frame) error {
	runID, err := r.current(key)
	if err != nil {
		return err
	}
	return r.store.SaveFrame(runID, frame)
}

func (r *Recorder) current(key pipeline.FrameKey) (string, error) {
	id := r.RunID()
	if id == "" {
		return "", fmt.Errorf("no run recorded for %s", key)
	}
	return id, nil
}
