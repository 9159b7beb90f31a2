// Package dataset reads camera calibration, frame metadata and LiDAR
// sweeps from a ONCE-style dataset tree:
//
//	ImageSets/{split}_split.txt
//	data/{seq}/{seq}.json
//	data/{seq}/lidar_roof/{frame}.bin
//
// All functions take an io/fs.FS rooted at the dataset directory.
package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/banshee-data/overlap/internal/camera"
	"github.com/banshee-data/overlap/internal/detection"
	"github.com/banshee-data/overlap/internal/geometry"
)

// Calib is the per-camera calibration block.
type Calib struct {
	CamToVelo    [][]float64 `json:"cam_to_velo"`
	CamIntrinsic [][]float64 `json:"cam_intrinsic"`
	Distortion   []float64   `json:"distortion"`
}

// FrameID is a frame timestamp id. The JSON may carry it as a number or a
// string.
type FrameID string

// UnmarshalJSON accepts both quoted and bare ids.
func (id *FrameID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = FrameID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("frame_id: %w", err)
	}
	*id = FrameID(n.String())
	return nil
}

// Annotations are the optional labelled boxes of a frame.
type Annotations struct {
	Names   []string               `json:"names"`
	Boxes3D [][]float64            `json:"boxes_3d,omitempty"`
	Boxes2D map[string][][]float64 `json:"boxes_2d,omitempty"`
}

// Frame is one entry of the sequence's frame list.
type Frame struct {
	ID    FrameID      `json:"frame_id"`
	Pose  []float64    `json:"pose"`
	Annos *Annotations `json:"annos,omitempty"`
}

// Detections converts the frame's 2D annotation boxes into detections with
// confidence 1. Boxes marked absent ([-1 -1 -1 -1]) are skipped.
func (f Frame) Detections() []detection.Detection {
	if f.Annos == nil {
		return nil
	}
	cams := make([]string, 0, len(f.Annos.Boxes2D))
	for c := range f.Annos.Boxes2D {
		cams = append(cams, c)
	}
	sort.Strings(cams)

	var out []detection.Detection
	for _, cam := range cams {
		for i, b := range f.Annos.Boxes2D[cam] {
			if len(b) != 4 || b[0] < 0 || i >= len(f.Annos.Names) {
				continue
			}
			out = append(out, detection.Detection{
				Camera:     cam,
				Label:      f.Annos.Names[i],
				Confidence: 1,
				Box:        detection.BBox{X1: b[0], Y1: b[1], X2: b[2], Y2: b[3]},
			})
		}
	}
	return out
}

// Sequence is a parsed data/{seq}/{seq}.json.
type Sequence struct {
	ID       string           `json:"-"`
	MetaInfo json.RawMessage  `json:"meta_info,omitempty"`
	Calib    map[string]Calib `json:"calib"`
	Frames   []Frame          `json:"frames"`
}

// LoadSequence reads the annotation file of seq.
func LoadSequence(fsys fs.FS, seq string) (*Sequence, error) {
	p := path.Join("data", seq, seq+".json")
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	s := &Sequence{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	if len(s.Calib) == 0 {
		return nil, fmt.Errorf("%s: no calibration", p)
	}
	s.ID = seq
	return s, nil
}

// CameraIDs returns the calibrated camera ids in sorted order.
func (s *Sequence) CameraIDs() []string {
	ids := make([]string, 0, len(s.Calib))
	for id := range s.Calib {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FrameIDs returns the frame ids in sorted order.
func (s *Sequence) FrameIDs() []string {
	ids := make([]string, 0, len(s.Frames))
	for _, f := range s.Frames {
		ids = append(ids, string(f.ID))
	}
	sort.Strings(ids)
	return ids
}

// Frame returns the frame with the given id.
func (s *Sequence) Frame(id string) (Frame, bool) {
	for _, f := range s.Frames {
		if string(f.ID) == id {
			return f, true
		}
	}
	return Frame{}, false
}

// Rig builds a camera rig from the calibration. A nil or empty cameras
// list selects every calibrated camera.
func (s *Sequence) Rig(cameras []string) (*camera.Rig, error) {
	if len(cameras) == 0 {
		cameras = s.CameraIDs()
	}
	params := make([]camera.Params, 0, len(cameras))
	for _, id := range cameras {
		c, ok := s.Calib[id]
		if !ok {
			return nil, fmt.Errorf("sequence %s: no calibration for camera %s", s.ID, id)
		}
		in, err := camera.IntrinsicsFromMatrix(c.CamIntrinsic)
		if err != nil {
			return nil, fmt.Errorf("camera %s intrinsics: %w", id, err)
		}
		ext, err := geometry.TransformFromRows(c.CamToVelo)
		if err != nil {
			return nil, fmt.Errorf("camera %s cam_to_velo: %w", id, err)
		}
		params = append(params, camera.Params{
			ID:          id,
			Intrinsics:  in,
			CamToShared: ext,
			Distortion:  append([]float64(nil), c.Distortion...),
		})
	}
	return camera.NewRig(params...)
}

// ErrUnknownSplit is returned when a split file does not exist.
var ErrUnknownSplit = errors.New("unknown split")

// LoadSplit returns the sequence ids listed in ImageSets/{name}_split.txt.
func LoadSplit(fsys fs.FS, name string) ([]string, error) {
	p := path.Join("ImageSets", name+"_split.txt")
	f, err := fsys.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSplit, name)
		}
		return nil, err
	}
	defer f.Close()

	var ids []string
	seen := make(map[string]bool)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		id := strings.TrimSpace(sc.Text())
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	sort.Strings(ids)
	return ids, nil
}
