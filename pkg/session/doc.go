/*
Package session implements run management and persistence orchestration.

A run is an engine checkpoint stored under a run ID. The Manager restores it,
applies an operation under the run's lock and saves it back, so concurrent
callers (HTTP handlers, MCP tools, replicas sharing a redis store) never
interleave generations of the same run.
*/
package session
