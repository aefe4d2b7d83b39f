// Package ipc exposes daemon control over a Unix domain socket using
// JSON-RPC. The rollcall CLI uses it to query a running rollcalld for
// status and today's attendance without opening the database alongside it.
package ipc
