package pipeline

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/banshee-data/overlap/internal/boundary"
	"github.com/banshee-data/overlap/internal/config"
	"github.com/banshee-data/overlap/internal/overlap"
	"github.com/banshee-data/overlap/internal/strip"
	"github.com/banshee-data/overlap/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

type recordingObserver struct {
	calls []string
	fail  string
}

func (r *recordingObserver) record(name string) error {
	r.calls = append(r.calls, name)
	if name == r.fail {
		return errors.New(name + " failed")
	}
	return nil
}

func (r *recordingObserver) OverlapDetected(FrameKey, overlap.Relation, *overlap.Report) error {
	return r.record("overlap")
}

func (r *recordingObserver) StripsExtracted(FrameKey, boundary.Strips) error {
	return r.record("extracted")
}

func (r *recordingObserver) StripsProjected(FrameKey, strip.Frame) error {
	return r.record("projected")
}

func ringCloud() []r3.Vec {
	var pts []r3.Vec
	for _, h := range []float64{-1, 0, 1} {
		pts = append(pts, testutil.Ring(10, h, 0.5)...)
	}
	return pts
}

var testKey = FrameKey{Sequence: "000076", Frame: "1616343528200"}

func TestRun_StandardRig(t *testing.T) {
	rig := testutil.Rig(t)
	obs := &recordingObserver{}
	cfg := ConfigFromTuning(config.EmptyTuningConfig())
	cfg.Observer = obs

	out, err := Run(testKey, rig, ringCloud(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"overlap", "extracted", "projected"}, obs.calls)
	assert.Equal(t, testKey, out.Key)
	assert.Len(t, out.Frustums, 3)
	assert.True(t, out.Relation.Has("cam01", "cam03"))
	assert.True(t, out.Relation.IsSymmetric())
	assert.Less(t, out.Scanned, len(ringCloud()), "points facing no camera are dropped")

	begin := strip.ID{Camera: "cam03", Edge: 0}
	require.Len(t, out.Frame["cam01"][begin], 3)
	require.Len(t, out.Raw["cam01"][begin], 3)

	// Post-processing sorts by image Y and pins the endpoints.
	pts := out.Frame["cam01"][begin]
	assert.Less(t, pts[0].Y, pts[1].Y)
	assert.Less(t, pts[1].Y, pts[2].Y)
	raw := out.Raw["cam01"][begin]
	assert.Equal(t, raw[2], pts[0], "highest point (z=1) has the smallest Y")

	end := strip.ID{Camera: "cam01", Edge: 1}
	assert.Len(t, out.Frame["cam03"][end], 3)
	assert.Empty(t, out.Frame["cam05"])
}

func TestRun_ObserverErrorAborts(t *testing.T) {
	rig := testutil.Rig(t)
	obs := &recordingObserver{fail: "extracted"}
	cfg := ConfigFromTuning(config.EmptyTuningConfig())
	cfg.Observer = obs

	_, err := Run(testKey, rig, ringCloud(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extracted failed")
	assert.Equal(t, []string{"overlap", "extracted"}, obs.calls)
}

func TestRun_InvalidPlanes(t *testing.T) {
	rig := testutil.Rig(t)
	cfg := ConfigFromTuning(config.EmptyTuningConfig())
	cfg.FarPlane = cfg.NearPlane
	_, err := Run(testKey, rig, nil, cfg)
	assert.Error(t, err)
}

func TestFilterVisible(t *testing.T) {
	rig := testutil.Rig(t)
	front := testutil.AtHeading(90, 10, 0)
	gap := testutil.AtHeading(180, 10, 0)
	side := testutil.AtHeading(0, 10, 0)

	got, err := FilterVisible(rig, []r3.Vec{front, gap, side})
	require.NoError(t, err)
	assert.Equal(t, []r3.Vec{front, side}, got)
}

func TestMultiObserver(t *testing.T) {
	a := &recordingObserver{fail: "overlap"}
	b := &recordingObserver{}
	m := MultiObserver{a, nil, b}

	err := m.OverlapDetected(testKey, overlap.Relation{}, nil)
	assert.Error(t, err)
	assert.Equal(t, []string{"overlap"}, b.calls, "later observers still run")

	assert.NoError(t, m.StripsExtracted(testKey, boundary.Strips{}))
	assert.NoError(t, m.StripsProjected(testKey, strip.Frame{}))
	assert.Equal(t, []string{"overlap", "extracted", "projected"}, a.calls)
}

func TestLogObserver(t *testing.T) {
	var diag, trace bytes.Buffer
	SetLogWriters(nil, &diag, &trace)
	defer SetLogWriters(nil, nil, nil)

	rig := testutil.Rig(t)
	cfg := ConfigFromTuning(config.EmptyTuningConfig())
	cfg.Observer = LogObserver{}
	_, err := Run(testKey, rig, ringCloud(), cfg)
	require.NoError(t, err)

	assert.True(t, strings.Contains(diag.String(), "cam01 overlaps [cam03]"), diag.String())
	assert.Contains(t, diag.String(), "000076/1616343528200")
	assert.Contains(t, trace.String(), "strip cam03_strip0 has 3 points")
}

func TestSetLogWriters_Streams(t *testing.T) {
	var ops, trace bytes.Buffer
	SetLogWriters(&ops, nil, &trace)
	defer SetLogWriters(nil, nil, nil)

	opsf("ops %d", 1)
	diagf("diag %d", 2)
	tracef("trace %d", 3)
	assert.Contains(t, ops.String(), "[pipeline] ")
	assert.Contains(t, ops.String(), "ops 1")
	assert.Contains(t, trace.String(), "trace 3")
	assert.NotContains(t, ops.String()+trace.String(), "diag 2")
}

func TestSetLogWriters_ConcurrentWithLogging(t *testing.T) {
	defer SetLogWriters(nil, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				diagf("frame %d", j)
			}
		}()
	}
	for j := 0; j < 50; j++ {
		SetLogWriters(nil, io.Discard, nil)
		SetLogWriters(nil, nil, nil)
	}
	wg.Wait()
}

func TestConfigFromTuning(t *testing.T) {
	cfg := ConfigFromTuning(config.EmptyTuningConfig())
	assert.Equal(t, 0.1, cfg.NearPlane)
	assert.Equal(t, 150.0, cfg.FarPlane)
	assert.Equal(t, overlap.DefaultParams(), cfg.Overlap)
	assert.Equal(t, boundary.DefaultParams(), cfg.Boundary)
	assert.True(t, cfg.VisiblePointsOnly)
	assert.Nil(t, cfg.Observer)
}
