// Package viewer owns the render lifecycle of one diagram container:
// waiting for content, rendering it, re-rendering on width changes and
// holding the pan/zoom transform applied to the output.
package viewer
