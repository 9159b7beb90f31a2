// Package pipeline runs the per-frame overlap pipeline: frustums, overlap
// detection, boundary extraction, strip projection and post-processing.
//
// This package is the composition root: it imports camera, overlap,
// boundary and strip, but none of those packages import pipeline/.
// Persistence and plotting attach through the Observer interface.
package pipeline
