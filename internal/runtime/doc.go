// Package runtime implements the nondeterministic stepping engine.
//
// Configurations live in an append-only arena addressed by domain.ConfigID.
// A frontier is a list of IDs; each Advance replaces it with the next
// generation and records it in the history, so traces are reconstructed by
// following parent IDs back to the root.
//
// The engine never detects epsilon cycles. Callers bound a run with a step
// budget or install a domain.Pruner.
package runtime
