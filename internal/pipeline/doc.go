// Package pipeline runs the live capture session: frames from the camera
// are matched to face tracks, recognizer calls fan out to a bounded worker
// pool with at most one outstanding call per track, and confirmed
// identities flow through the attendance ledger's cooldown gate. The
// presentation layer observes the session purely through a channel of
// immutable events.
package pipeline
