/*
Package ports defines the driven ports (interfaces) around the simulation core.

These interfaces decouple the engine from external implementations, allowing
runs to be driven, persisted and loaded through various backends.

# Key Interfaces

  - Simulator: the stepping surface drivers (runner, HTTP, MCP) depend on.
  - DefinitionLoader: Responsible for loading automaton definitions (e.g., from Loam, files or memory).
  - RunStore: Responsible for persisting and loading run checkpoints.
  - DistributedLocker: Provides distributed locking for handling concurrent access to a run.
*/
package ports
