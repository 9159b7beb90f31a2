// Package geometry holds the vector and transform primitives shared by the
// frustum, overlap and boundary stages.
//
// All points live in the shared sensing frame (the LiDAR frame):
// X and Y span the ground plane and Z points up. Vectors use gonum's r3.Vec.
//
// Dependency rule: geometry depends on nothing else in this module.
package geometry
