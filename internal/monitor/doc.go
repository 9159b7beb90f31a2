// Package monitor renders overlap strips for inspection: PNG plots per
// camera image, interactive echarts pages and annotated overlays.
package monitor
