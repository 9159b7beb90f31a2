package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/overlap/internal/httputil"
	"github.com/banshee-data/overlap/internal/query"
	"github.com/banshee-data/overlap/internal/storage/sqlite"
	"github.com/banshee-data/overlap/internal/strip"
)

// QueryRequest selects a run and the points to test. A run is named by
// RunID, or by SequenceID and FrameID for the newest run of that frame.
type QueryRequest struct {
	RunID      string       `json:"run_id,omitempty"`
	SequenceID string       `json:"sequence_id,omitempty"`
	FrameID    string       `json:"frame_id,omitempty"`
	Camera     string       `json:"camera"`
	Points     [][2]float64 `json:"points"`
}

// QueryResponse wraps a query result with the run it was evaluated on.
type QueryResponse struct {
	RunID   string        `json:"run_id"`
	QueryID string        `json:"query_id,omitempty"`
	Result  *query.Result `json:"result"`
}

// RelationResponse is the overlap relation of a run.
type RelationResponse struct {
	RunID    string              `json:"run_id"`
	Relation map[string][]string `json:"relation"`
}

// StripsResponse holds the image strips of one camera.
type StripsResponse struct {
	RunID  string      `json:"run_id"`
	Camera string      `json:"camera"`
	Strips strip.Image `json:"strips"`
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, sqlite.ErrRunNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.InternalServerError(w, err.Error())
}

// resolveRun returns the run named by runID, or the latest run of the
// sequence frame when runID is empty.
func (s *Server) resolveRun(runID, sequenceID, frameID string) (*sqlite.Run, error) {
	if runID != "" {
		return s.store.GetRun(runID)
	}
	if sequenceID == "" || frameID == "" {
		return nil, errMissingRun
	}
	return s.store.LatestRun(sequenceID, frameID)
}

var errMissingRun = errors.New("run_id or sequence_id and frame_id are required")

func (s *Server) runFromQuery(w http.ResponseWriter, r *http.Request) (*sqlite.Run, bool) {
	q := r.URL.Query()
	run, err := s.resolveRun(q.Get("run_id"), q.Get("sequence_id"), q.Get("frame_id"))
	if err != nil {
		if errors.Is(err, errMissingRun) {
			httputil.BadRequest(w, err.Error())
		} else {
			s.writeStoreError(w, err)
		}
		return nil, false
	}
	return run, true
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 || v > 1000 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = v
	}
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []*sqlite.Run{}
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) showRelation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	run, ok := s.runFromQuery(w, r)
	if !ok {
		return
	}
	rel, err := s.store.LoadRelation(run.RunID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	httputil.WriteJSONOK(w, RelationResponse{RunID: run.RunID, Relation: rel})
}

func (s *Server) showStrips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	cam := r.URL.Query().Get("camera")
	if cam == "" {
		httputil.BadRequest(w, "missing 'camera' parameter")
		return
	}
	run, ok := s.runFromQuery(w, r)
	if !ok {
		return
	}
	if !hasCamera(run, cam) {
		httputil.NotFound(w, fmt.Sprintf("camera %s not in run %s", cam, run.RunID))
		return
	}
	img, err := s.store.LoadImage(run.RunID, cam)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	httputil.WriteJSONOK(w, StripsResponse{RunID: run.RunID, Camera: cam, Strips: img})
}

func (s *Server) runQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req QueryRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Camera == "" {
		httputil.BadRequest(w, "missing 'camera'")
		return
	}

	run, err := s.resolveRun(req.RunID, req.SequenceID, req.FrameID)
	if err != nil {
		if errors.Is(err, errMissingRun) {
			httputil.BadRequest(w, err.Error())
		} else {
			s.writeStoreError(w, err)
		}
		return
	}
	rel, err := s.store.LoadRelation(run.RunID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	frame, err := s.store.LoadFrame(run.RunID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	res, err := s.engine.Query(req.Camera, req.Points, frame, rel)
	if err != nil {
		if errors.Is(err, query.ErrInvalidPointCount) || errors.Is(err, query.ErrUnknownCamera) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}

	resp := QueryResponse{RunID: run.RunID, Result: res}
	if s.RecordQueries {
		rec := sqlite.RecordFromResult(run.RunID, res)
		if err := s.store.InsertQuery(rec); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to record query: %v", err))
			return
		}
		resp.QueryID = rec.QueryID
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) listQueries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	run, ok := s.runFromQuery(w, r)
	if !ok {
		return
	}
	recs, err := s.store.ListQueries(run.RunID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if recs == nil {
		recs = []*sqlite.QueryRecord{}
	}
	httputil.WriteJSONOK(w, recs)
}

func hasCamera(run *sqlite.Run, cam string) bool {
	for _, c := range run.Cameras {
		if c == cam {
			return true
		}
	}
	return false
}
