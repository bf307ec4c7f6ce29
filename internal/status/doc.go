// Package status tracks which lifecycle statuses a render frame has reported
// to its host and delivers them.
//
// Until the host acknowledges, every status except hello is held back in
// insertion order; Acknowledge replays the held messages exactly once.
package status
