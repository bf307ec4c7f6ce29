package viewer

import (
	"math"

	"github.com/danmuck/renderframe/internal/render"
)

const (
	// MinHeight leaves room for the overlay controls.
	MinHeight = 180
	// DefaultContainerHeight is reported when output declares no height.
	DefaultContainerHeight = 500
)

// ComputeHeight returns the height to report to the host for res shown in a
// container of containerWidth whose top-left sits at (offsetX, offsetY).
// Engines report a width-independent height, so output wider than the
// container is scaled down by the same ratio as its width.
func ComputeHeight(res render.Result, containerWidth, offsetX, offsetY float64) float64 {
	height := res.Height
	if height <= 0 {
		height = DefaultContainerHeight
	}
	height += offsetX + offsetY
	if res.Width > 0 && containerWidth > 0 && containerWidth < res.Width {
		height *= containerWidth / res.Width
	}
	return math.Max(height, MinHeight)
}
