// Package protocol owns the cross-frame message contract between a render
// frame and its host page.
//
// Ownership boundary:
// - inbound envelopes (render:cmd, render:timing) and their decoding
// - the closed command set carried by render:cmd
// - outbound status envelopes and the status kind vocabulary
package protocol
