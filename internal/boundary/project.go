package boundary

import (
	"github.com/banshee-data/overlap/internal/camera"
	"github.com/banshee-data/overlap/internal/strip"
)

// Project renders strips into each rig camera's image. An image receives
// every strip owned by another camera that has at least one point inside
// it; only in-image points are kept, in extraction order.
func Project(rig *camera.Rig, strips Strips) (strip.Frame, error) {
	projectors, err := camera.NewProjectors(rig)
	if err != nil {
		return nil, err
	}

	ids := strips.IDs()
	frame := make(strip.Frame, rig.Len())
	for _, cam := range rig.IDs() {
		pr := projectors[cam]
		img := make(strip.Image)
		for _, id := range ids {
			if id.Camera == cam {
				continue
			}
			var pts []strip.Point
			for _, x := range strips[id] {
				u, v, ok := pr.Project(x)
				if !ok || !pr.InImage(u, v) {
					continue
				}
				pts = append(pts, strip.Point{X: u, Y: v})
			}
			if len(pts) > 0 {
				img[id] = pts
			}
		}
		frame[cam] = img
	}
	return frame, nil
}
