package pipeline

import (
	"errors"

	"github.com/banshee-data/overlap/internal/boundary"
	"github.com/banshee-data/overlap/internal/overlap"
	"github.com/banshee-data/overlap/internal/strip"
)

// FrameKey identifies one processed frame.
type FrameKey struct {
	Sequence string
	Frame    string
}

func (k FrameKey) String() string {
	return k.Sequence + "/" + k.Frame
}

// Observer receives pipeline outputs at the stage boundaries. A non-nil
// error aborts the run.
type Observer interface {
	// OverlapDetected is called once the symmetric relation is known.
	OverlapDetected(key FrameKey, rel overlap.Relation, report *overlap.Report) error
	// StripsExtracted is called with the raw 3D strips.
	StripsExtracted(key FrameKey, strips boundary.Strips) error
	// StripsProjected is called with the post-processed image strips.
	StripsProjected(key FrameKey, frame strip.Frame) error
}

// MultiObserver fans out to every non-nil observer in order. All observers
// are called; their errors are joined.
type MultiObserver []Observer

func (m MultiObserver) OverlapDetected(key FrameKey, rel overlap.Relation, report *overlap.Report) error {
	var errs []error
	for _, o := range m {
		if o != nil {
			errs = append(errs, o.OverlapDetected(key, rel, report))
		}
	}
	return errors.Join(errs...)
}

func (m MultiObserver) StripsExtracted(key FrameKey, strips boundary.Strips) error {
	var errs []error
	for _, o := range m {
		if o != nil {
			errs = append(errs, o.StripsExtracted(key, strips))
		}
	}
	return errors.Join(errs...)
}

func (m MultiObserver) StripsProjected(key FrameKey, frame strip.Frame) error {
	var errs []error
	for _, o := range m {
		if o != nil {
			errs = append(errs, o.StripsProjected(key, frame))
		}
	}
	return errors.Join(errs...)
}

// LogObserver writes stage summaries to the diag stream and per-item
// detail to the trace stream.
type LogObserver struct{}

func (LogObserver) OverlapDetected(key FrameKey, rel overlap.Relation, report *overlap.Report) error {
	for _, cam := range rel.Cameras() {
		diagf("%s: %s overlaps %v", key, cam, rel[cam])
	}
	if report != nil {
		for _, p := range report.Repaired {
			diagf("%s: symmetry repair added %s -> %s", key, p.Source, p.Target)
		}
		for pair, n := range report.Counts {
			tracef("%s: %s -> %s %d frustum points in image", key, pair.Source, pair.Target, n)
		}
	}
	return nil
}

func (LogObserver) StripsExtracted(key FrameKey, strips boundary.Strips) error {
	diagf("%s: %d strips, %d boundary points", key, len(strips), strips.Len())
	for _, id := range strips.IDs() {
		tracef("%s: strip %s has %d points", key, id, len(strips[id]))
	}
	return nil
}

func (LogObserver) StripsProjected(key FrameKey, frame strip.Frame) error {
	for _, cam := range frame.Cameras() {
		img := frame[cam]
		diagf("%s: image %s holds %d strips, %d points", key, cam, len(img), img.Len())
	}
	return nil
}
