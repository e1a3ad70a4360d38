// Package automaton holds the validated pushdown automaton model and the
// transition index derived from it.
//
// A Model is built once, either from a Spec with New or from a loader record
// with FromDefinition, and never changes afterwards. Construction reports every
// violated invariant at once through an *AggregateError.
package automaton
