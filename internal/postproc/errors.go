// Package postproc implements the negotiation-and-transform engine of
// the post-processing stage: capability negotiation, the dirty-flag
// filter configuration state machine, the deinterlacing state machine
// with field splitting, and the geometry compensation that keeps crop,
// rotation and scaling consistent.
package postproc

import "errors"

var (
	// ErrNegotiationFailed means no common format exists, or the
	// selected configuration is incompatible with the negotiated format.
	// Fatal to the stream.
	ErrNegotiationFailed = errors.New("postproc: negotiation failed")

	// ErrFilterRejected means the engine refused a filter operation.
	// For deinterlacing this triggers the method fallback ladder; for
	// anything else the hardware path is abandoned for this frame.
	ErrFilterRejected = errors.New("postproc: filter rejected by engine")

	// ErrInvalidBuffer means a frame is missing required metadata or a
	// surface. Fatal for the current frame only.
	ErrInvalidBuffer = errors.New("postproc: invalid buffer")

	// ErrNotNegotiated means Process was called before formats were
	// fixated.
	ErrNotNegotiated = errors.New("postproc: formats not negotiated")
)
