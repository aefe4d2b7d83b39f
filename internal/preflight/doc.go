// Package preflight verifies the runtime environment before a capture
// session starts: directory permissions, recognition model files, the
// camera stream, and notification transports. Checks report rather than
// fail so the daemon can start degraded and log what is missing.
package preflight
