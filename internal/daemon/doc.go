// Package daemon supervises the rollcall background service: it enforces
// single-instance execution with a file lock, keeps a capture session
// running with restart backoff, and watches udev for the camera device
// coming and going.
package daemon
