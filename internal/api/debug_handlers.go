package api

import (
	"bytes"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/overlap/internal/httputil"
	"github.com/banshee-data/overlap/internal/monitor"
	"github.com/banshee-data/overlap/internal/query"
	"github.com/banshee-data/overlap/internal/strip"
)

// Image size used when the server has no rig entry for a camera.
const (
	fallbackWidth  = 1920
	fallbackHeight = 1020
)

func (s *Server) imageSize(cam string) (w, h float64) {
	if s.rig != nil {
		if p, ok := s.rig.Get(cam); ok {
			return p.ImageSize()
		}
	}
	return fallbackWidth, fallbackHeight
}

// parsePoints reads "u,v;u,v;..." into query points.
func parsePoints(raw string) ([][2]float64, error) {
	if raw == "" {
		return nil, nil
	}
	var out [][2]float64
	for _, pair := range strings.Split(raw, ";") {
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid point %q", pair)
		}
		u, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", pair, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", pair, err)
		}
		out = append(out, [2]float64{u, v})
	}
	return out, nil
}

// loadImage resolves the run and camera query parameters and loads the
// camera's strips. It writes the error response itself.
func (s *Server) loadImage(w http.ResponseWriter, r *http.Request) (runID, cam string, img strip.Image, ok bool) {
	cam = r.URL.Query().Get("camera")
	if cam == "" {
		httputil.BadRequest(w, "missing 'camera' parameter")
		return "", "", nil, false
	}
	run, ok := s.runFromQuery(w, r)
	if !ok {
		return "", "", nil, false
	}
	img, err := s.store.LoadImage(run.RunID, cam)
	if err != nil {
		s.writeStoreError(w, err)
		return "", "", nil, false
	}
	return run.RunID, cam, img, true
}

// handleStripChart renders the strips of one camera image as an echarts
// scatter. Optional points=u,v;u,v adds query markers.
func (s *Server) handleStripChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	points, err := parsePoints(r.URL.Query().Get("points"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	runID, cam, img, ok := s.loadImage(w, r)
	if !ok {
		return
	}
	width, height := s.imageSize(cam)

	var buf bytes.Buffer
	err = monitor.RenderImageChart(&buf, monitor.ImageChart{
		Camera:   cam,
		Width:    width,
		Height:   height,
		Image:    img,
		Query:    points,
		Subtitle: "run=" + runID,
	})
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleOverlay renders the strips of one camera image as a PNG. With
// points=u,v (1 or 4 points) the query verdict is drawn on top.
func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	points, err := parsePoints(r.URL.Query().Get("points"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	runID, cam, img, ok := s.loadImage(w, r)
	if !ok {
		return
	}

	var res *query.Result
	if len(points) > 0 {
		rel, err := s.store.LoadRelation(runID)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		res, err = s.engine.Query(cam, points, strip.Frame{cam: img}, rel)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}

	width, height := s.imageSize(cam)
	out, err := monitor.DrawOverlay(monitor.Overlay{
		Width:  int(width),
		Height: int(height),
		Image:  img,
		Result: res,
	})
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
