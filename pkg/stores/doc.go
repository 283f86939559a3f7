// Package stores persists workflow history for the handler runtime. Every
// workflow driven to completion is recorded with one row per invocation,
// an append-only event log, and the last known state of each resource.
// The handlers themselves never read it: all state they need travels in
// the callback context.
package stores
