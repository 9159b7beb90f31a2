package detection

import (
	"sort"

	"github.com/banshee-data/overlap/internal/config"
	"gonum.org/v1/gonum/spatial/r3"
)

// Params controls cross-camera association.
type Params struct {
	// PixelWindow is the half-size, in pixels, of the box searched around
	// a detection centre for a projected LiDAR point.
	PixelWindow float64
	// MatchDistance is the maximum distance, in metres, between the LiDAR
	// points of two detections of the same object.
	MatchDistance float64
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{PixelWindow: 8, MatchDistance: 1.0}
}

// ParamsFromTuning builds Params from a loaded TuningConfig.
func ParamsFromTuning(cfg *config.TuningConfig) Params {
	return Params{
		PixelWindow:   cfg.GetPixelMatchWindow(),
		MatchDistance: cfg.GetMatchDistance(),
	}
}

// Anchored is a located detection tied to a LiDAR point.
type Anchored struct {
	Located
	Anchor Correspondence
}

// Match is one object seen by two cameras.
type Match struct {
	A        Anchored
	B        Anchored
	Distance float64
}

// Anchor ties every located detection that lies in an overlap to the
// LiDAR point projected nearest its centre. Detections outside overlaps or
// without a nearby LiDAR return are skipped.
func Anchor(located []Located, index map[string]*PixelIndex, p Params) []Anchored {
	var out []Anchored
	for _, l := range located {
		if len(l.Cameras()) == 0 {
			continue
		}
		ix, ok := index[l.Camera]
		if !ok {
			continue
		}
		c := l.Box.Center()
		corr, ok := ix.Nearest(c[0], c[1], p.PixelWindow)
		if !ok {
			continue
		}
		out = append(out, Anchored{Located: l, Anchor: corr})
	}
	return out
}

// Associate pairs anchored detections of the same label in two mutually
// overlapping cameras whose LiDAR anchors lie within MatchDistance. Each
// detection joins at most one match, taken greedily by ascending distance.
func Associate(anchored []Anchored, p Params) []Match {
	type candidate struct {
		i, j int
		dist float64
	}
	var cands []candidate
	for i := range anchored {
		for j := i + 1; j < len(anchored); j++ {
			a, b := anchored[i], anchored[j]
			if a.Camera == b.Camera || a.Label != b.Label {
				continue
			}
			if !contains(a.Cameras(), b.Camera) || !contains(b.Cameras(), a.Camera) {
				continue
			}
			d := r3.Norm(r3.Sub(a.Anchor.Point, b.Anchor.Point))
			if d < p.MatchDistance {
				cands = append(cands, candidate{i: i, j: j, dist: d})
			}
		}
	}
	sort.SliceStable(cands, func(x, y int) bool { return cands[x].dist < cands[y].dist })

	taken := make(map[int]bool)
	var out []Match
	for _, c := range cands {
		if taken[c.i] || taken[c.j] {
			continue
		}
		taken[c.i], taken[c.j] = true, true
		out = append(out, Match{A: anchored[c.i], B: anchored[c.j], Distance: c.dist})
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
