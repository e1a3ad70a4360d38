/*
Package domain contains the core domain models shared by every pdasim package.

It defines the vocabulary of a pushdown automaton run: states, symbols, transition
rules, the external definition record, configuration views and the snapshots the
engine hands to presentation collaborators. This package is kept pure and free of
I/O or persistence concerns, following Hexagonal Architecture principles.

# Key Entities

  - Rule: One transition (from, input-or-epsilon, stack top) -> (to, push sequence).
  - Definition: The structured record produced by loaders (JSON, YAML, Loam).
  - ConfigView: A read-only copy of one instantaneous configuration.
  - Snapshot: The frontier after a generation, with phase and verdict.
  - Checkpoint: The serializable form of a run, used by run stores.
*/
package domain
