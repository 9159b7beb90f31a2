package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/banshee-data/overlap/internal/camera"
	"github.com/banshee-data/overlap/internal/config"
	"github.com/banshee-data/overlap/internal/dataset"
	"github.com/banshee-data/overlap/internal/detection"
	"github.com/banshee-data/overlap/internal/monitor"
	"github.com/banshee-data/overlap/internal/pipeline"
	"github.com/banshee-data/overlap/internal/query"
	"github.com/banshee-data/overlap/internal/storage/sqlite"
	"gonum.org/v1/gonum/spatial/r3"
)

type buildOptions struct {
	sequence string
	split    string
	frame    string
	cameras  []string
	plotsDir string
	// boxes queries the four box corners instead of the centre.
	boxes bool
}

func handleBuild(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("build", flag.ContinueOnError)
	var common commonFlags
	common.register(flags)
	dataDir := flags.String("data", "", "Dataset root directory (required)")
	seq := flags.String("seq", "", "Sequence id")
	split := flags.String("split", "", "Process every sequence of this split instead of -seq")
	frame := flags.String("frame", "", "Frame id (default: every frame of the sequence)")
	cameras := flags.String("cameras", "", "Comma-separated camera ids (default: config cameras, then all calibrated)")
	plotsDir := flags.String("plots", "", "Write strip plots and overlays below this directory")
	boxes := flags.Bool("boxes", false, "Locate detections with 4-corner box queries instead of centre points")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *dataDir == "" {
		return fmt.Errorf("-data is required")
	}
	if (*seq == "") == (*split == "") {
		return fmt.Errorf("exactly one of -seq or -split is required")
	}

	common.setupLogging(os.Stderr)
	tuning, err := common.tuning()
	if err != nil {
		return err
	}
	db, err := sqlite.OpenDB(common.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := buildOptions{
		sequence: *seq,
		split:    *split,
		frame:    *frame,
		cameras:  parseCameras(*cameras),
		plotsDir: *plotsDir,
		boxes:    *boxes,
	}
	return runBuild(os.DirFS(*dataDir), sqlite.NewStore(db), tuning, opts, out)
}

// runBuild processes the selected frames and reports one line per run.
func runBuild(fsys fs.FS, store *sqlite.Store, tuning *config.TuningConfig, opts buildOptions, out io.Writer) error {
	sequences := []string{opts.sequence}
	if opts.split != "" {
		var err error
		if sequences, err = dataset.LoadSplit(fsys, opts.split); err != nil {
			return err
		}
	}

	cameras := opts.cameras
	if len(cameras) == 0 {
		cameras = tuning.GetCameras()
	}

	for _, id := range sequences {
		seq, err := dataset.LoadSequence(fsys, id)
		if err != nil {
			return err
		}
		rig, err := seq.Rig(cameras)
		if err != nil {
			return err
		}
		frames := seq.FrameIDs()
		if opts.frame != "" {
			if _, ok := seq.Frame(opts.frame); !ok {
				return fmt.Errorf("sequence %s has no frame %s", id, opts.frame)
			}
			frames = []string{opts.frame}
		}
		for _, frameID := range frames {
			if err := buildFrame(fsys, store, tuning, seq, rig, frameID, opts, out); err != nil {
				return fmt.Errorf("%s/%s: %w", id, frameID, err)
			}
		}
	}
	return nil
}

func buildFrame(fsys fs.FS, store *sqlite.Store, tuning *config.TuningConfig, seq *dataset.Sequence,
	rig *camera.Rig, frameID string, opts buildOptions, out io.Writer) error {
	points, err := dataset.LoadPointCloud(fsys, seq.ID, frameID)
	if err != nil {
		return err
	}

	rec, err := sqlite.NewRecorder(store, tuning)
	if err != nil {
		return err
	}
	observers := pipeline.MultiObserver{pipeline.LogObserver{}, rec}
	if opts.plotsDir != "" {
		observers = append(observers, monitor.NewStripPlotter(opts.plotsDir, rig))
	}
	cfg := pipeline.ConfigFromTuning(tuning)
	cfg.Observer = observers

	key := pipeline.FrameKey{Sequence: seq.ID, Frame: frameID}
	res, err := pipeline.Run(key, rig, points, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run %s %s: %d strips, %d image strip points\n", rec.RunID(), key, len(res.Strips), frameLen(res))
	for _, cam := range res.Relation.Cameras() {
		fmt.Fprintf(out, "  %s overlaps %v\n", cam, res.Relation[cam])
	}

	frame, _ := seq.Frame(frameID)
	return locateDetections(frame, rig, points, res, tuning, opts, out)
}

func frameLen(res *pipeline.Output) int {
	n := 0
	for _, img := range res.Frame {
		n += img.Len()
	}
	return n
}

// locateDetections queries the centre of every annotated box, or its
// corners with opts.boxes, associates the results across cameras and
// optionally draws overlays.
func locateDetections(frame dataset.Frame, rig *camera.Rig, points []r3.Vec, res *pipeline.Output,
	tuning *config.TuningConfig, opts buildOptions, out io.Writer) error {
	var dets []detection.Detection
	for _, d := range frame.Detections() {
		if _, ok := rig.Get(d.Camera); ok {
			dets = append(dets, d)
		}
	}
	if len(dets) == 0 {
		return nil
	}

	engine := query.NewEngine(query.ParamsFromTuning(tuning))
	locate := detection.Locate
	if opts.boxes {
		locate = detection.LocateBoxes
	}
	located, err := locate(engine, res.Frame, res.Relation, dets)
	if err != nil {
		return err
	}
	index, err := detection.Correspondences(rig, points)
	if err != nil {
		return err
	}
	dp := detection.ParamsFromTuning(tuning)
	matches := detection.Associate(detection.Anchor(located, index, dp), dp)

	inOverlap := 0
	for _, l := range located {
		if len(l.Cameras()) > 0 {
			inOverlap++
		}
	}
	fmt.Fprintf(out, "  %d detections, %d in overlap, %d cross-camera matches\n", len(located), inOverlap, len(matches))
	for _, m := range matches {
		fmt.Fprintf(out, "    %s: %s <-> %s (%.2f m)\n", m.A.Label, m.A.Camera, m.B.Camera, m.Distance)
	}

	if opts.plotsDir == "" {
		return nil
	}
	byCamera := make(map[string][]detection.Located)
	for _, l := range located {
		byCamera[l.Camera] = append(byCamera[l.Camera], l)
	}
	dir := filepath.Join(opts.plotsDir, res.Key.Sequence, res.Key.Frame)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	for cam, ls := range byCamera {
		p, _ := rig.Get(cam)
		w, h := p.ImageSize()
		err := monitor.SaveOverlay(filepath.Join(dir, cam+"_overlay.png"), monitor.Overlay{
			Width:   int(w),
			Height:  int(h),
			Image:   res.Frame[cam],
			Located: ls,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
