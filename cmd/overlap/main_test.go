package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/banshee-data/overlap/internal/api"
	"github.com/banshee-data/overlap/internal/camera"
	"github.com/banshee-data/overlap/internal/config"
	"github.com/banshee-data/overlap/internal/dataset"
	"github.com/banshee-data/overlap/internal/query"
	"github.com/banshee-data/overlap/internal/storage/sqlite"
	"github.com/banshee-data/overlap/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	testSeq   = "000076"
	testFrame = "1616343528200"
)

// datasetFS lays out the standard test rig as a one-frame sequence with a
// car annotated in both overlapping cameras. The cam01 box straddles the
// cam03 boundary at u≈634 while its centre lies inside the overlap.
func datasetFS(t *testing.T) fstest.MapFS {
	t.Helper()
	calib := map[string]dataset.Calib{}
	for id, yaw := range testutil.Yaws {
		m := camera.LevelMount(yaw, r3.Vec{Z: testutil.MountHeight})
		rows := make([][]float64, 4)
		for i := range rows {
			rows[i] = append([]float64(nil), m[i*4:i*4+4]...)
		}
		calib[id] = dataset.Calib{
			CamToVelo:    rows,
			CamIntrinsic: [][]float64{{500, 0, 500}, {0, 500, 400}, {0, 0, 1}},
			Distortion:   []float64{0, 0, 0, 0, 0},
		}
	}
	seq := map[string]interface{}{
		"calib": calib,
		"frames": []interface{}{
			map[string]interface{}{
				"frame_id": testFrame,
				"pose":     []float64{0, 0, 0, 1, 0, 0, 0},
				"annos": map[string]interface{}{
					"names": []string{"Car"},
					"boxes_2d": map[string][][]float64{
						"cam01": {{600, 380, 900, 420}},
						"cam03": {{120, 380, 218, 420}},
						"cam05": {{-1, -1, -1, -1}},
					},
				},
			},
		},
	}
	data, err := json.Marshal(seq)
	require.NoError(t, err)

	var cloud []r3.Vec
	for _, h := range []float64{-1, 0, 1} {
		cloud = append(cloud, testutil.Ring(10, h, 0.5)...)
	}
	return fstest.MapFS{
		"data/" + testSeq + "/" + testSeq + ".json":             {Data: data},
		"data/" + testSeq + "/lidar_roof/" + testFrame + ".bin": {Data: dataset.EncodePoints(cloud)},
		"ImageSets/val_split.txt":                               {Data: []byte(testSeq + "\n")},
	}
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "overlap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlite.NewStore(db)
}

func TestRunBuild(t *testing.T) {
	store := openStore(t)
	plots := t.TempDir()
	var out bytes.Buffer

	err := runBuild(datasetFS(t), store, config.EmptyTuningConfig(), buildOptions{
		sequence: testSeq,
		frame:    testFrame,
		plotsDir: plots,
	}, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "cam01 overlaps [cam03]")
	assert.Contains(t, text, "cam03 overlaps [cam01]")
	assert.Contains(t, text, "2 detections, 2 in overlap, 1 cross-camera matches")
	assert.Contains(t, text, "Car: cam01 <-> cam03")

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, testSeq, runs[0].SequenceID)

	dir := filepath.Join(plots, testSeq, testFrame)
	for _, name := range []string{"strips_topdown.png", "cam01_strips.png", "cam01_overlay.png", "cam03_overlay.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunBuild_BoxQueries(t *testing.T) {
	store := openStore(t)
	var out bytes.Buffer

	err := runBuild(datasetFS(t), store, config.EmptyTuningConfig(), buildOptions{
		sequence: testSeq,
		frame:    testFrame,
		boxes:    true,
	}, &out)
	require.NoError(t, err)

	// Both left corners of the cam01 box fail the boundary, which exceeds
	// the box tolerance, so only the cam03 detection stays in overlap.
	text := out.String()
	assert.Contains(t, text, "2 detections, 1 in overlap, 0 cross-camera matches")
	assert.NotContains(t, text, "Car: cam01 <-> cam03")
}

func TestRunBuild_Split(t *testing.T) {
	store := openStore(t)
	var out bytes.Buffer
	err := runBuild(datasetFS(t), store, config.EmptyTuningConfig(), buildOptions{split: "val"}, &out)
	require.NoError(t, err)

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunBuild_Errors(t *testing.T) {
	store := openStore(t)
	var out bytes.Buffer
	fsys := datasetFS(t)

	err := runBuild(fsys, store, config.EmptyTuningConfig(), buildOptions{sequence: testSeq, frame: "42"}, &out)
	assert.ErrorContains(t, err, "no frame 42")

	err = runBuild(fsys, store, config.EmptyTuningConfig(), buildOptions{sequence: testSeq, cameras: []string{"cam09"}}, &out)
	assert.ErrorContains(t, err, "cam09")

	err = runBuild(fsys, store, config.EmptyTuningConfig(), buildOptions{split: "nope"}, &out)
	assert.ErrorIs(t, err, dataset.ErrUnknownSplit)
}

func TestQueryLocal(t *testing.T) {
	store := openStore(t)
	var out bytes.Buffer
	require.NoError(t, runBuild(datasetFS(t), store, config.EmptyTuningConfig(),
		buildOptions{sequence: testSeq, frame: testFrame}, &out))

	engine := query.NewEngine(query.DefaultParams())
	resp, err := queryLocal(store, engine, api.QueryRequest{
		SequenceID: testSeq, FrameID: testFrame, Camera: "cam01", Points: [][2]float64{{700, 400}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cam03"}, resp.Result.Proven)

	out.Reset()
	require.NoError(t, printQuery(&out, resp, false))
	assert.Contains(t, out.String(), "Within Camera cam01 the point [700 400] lies within the following overlap region of cam03")

	out.Reset()
	require.NoError(t, printQuery(&out, resp, true))
	var decoded api.QueryResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, resp.RunID, decoded.RunID)

	_, err = queryLocal(store, engine, api.QueryRequest{Camera: "cam01", Points: [][2]float64{{1, 1}}})
	assert.Error(t, err)
	_, err = queryLocal(store, engine, api.QueryRequest{RunID: "missing", Camera: "cam01", Points: [][2]float64{{1, 1}}})
	assert.ErrorIs(t, err, sqlite.ErrRunNotFound)
}

func TestHandleBuild_FlagErrors(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorContains(t, handleBuild([]string{"-seq", testSeq}, &out), "-data")
	assert.ErrorContains(t, handleBuild([]string{"-data", "x"}, &out), "exactly one")
	assert.ErrorContains(t, handleBuild([]string{"-data", "x", "-seq", "a", "-split", "b"}, &out), "exactly one")
}

func TestHandleQuery_FlagErrors(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorContains(t, handleQuery([]string{"-points", "1,1"}, &out), "-camera")
	assert.ErrorContains(t, handleQuery([]string{"-camera", "cam01"}, &out), "no points")
	assert.ErrorContains(t, handleQuery([]string{"-camera", "cam01", "-points", "1;2"}, &out), "invalid point")
}

func TestParseCameras(t *testing.T) {
	assert.Equal(t, []string{"cam01", "cam03"}, parseCameras(" cam01, ,cam03 "))
	assert.Nil(t, parseCameras(""))
}

func TestParsePoints(t *testing.T) {
	pts, err := parsePoints("10,10;90,10;90,60;10,60")
	require.NoError(t, err)
	assert.Len(t, pts, 4)
	assert.Equal(t, [2]float64{90, 60}, pts[2])

	_, err = parsePoints("1,x")
	assert.Error(t, err)
}

func TestCommonFlags_Tuning(t *testing.T) {
	c := commonFlags{}
	cfg, err := c.tuning()
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.GetNearPlane())

	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"near_plane": 0.5}`), 0644))
	c.configPath = path
	cfg, err = c.tuning()
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.GetNearPlane())
}
