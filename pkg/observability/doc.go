/*
Package observability provides lifecycle hooks for monitoring simulation runs.

Metrics records Prometheus counters and histograms for generations, created,
dropped and pruned configurations and halts. LogHooks writes one structured
log line per event. Combine merges several hook sets into one.
*/
package observability
