/*
Package pdasim simulates nondeterministic pushdown automata.

A definition (states, alphabets, transitions, initial and accept states plus
an input string) is validated into an immutable model. The engine then
explores every reachable configuration, one generation per Advance call,
branching on every applicable rule including epsilon moves, and reports a
verdict: accepted, rejected or still pending.

# Usage

	def := domain.Definition{
		States:             []string{"q0", "q1", "q2"},
		Alphabet:           []string{"a", "b"},
		StackSymbols:       []string{"Z", "A"},
		InitialState:       "q0",
		InitialStackSymbol: "Z",
		AcceptStates:       []string{"q2"},
		Transitions: []domain.TransitionRecord{
			{FromState: "q0", InputSymbol: "a", StackSymbol: "Z", ToState: "q0", StackPush: "AZ"},
			// ...
		},
		InputString: "aabb",
	}

	eng, err := pdasim.New(def)
	if err != nil {
		log.Fatal(err) // every validation error, aggregated
	}

	res, err := eng.Run(ctx, runner.WithBudget(100))
	fmt.Println(res.Snapshot.Verdict)

Runs never detect epsilon cycles on their own. Bound them with a step budget
(runner.WithBudget) or a pruner (WithPruner, runner.WithDedup).

Definitions can also be read from a directory of JSON/YAML files
(pkg/adapters/file), from a Loam markdown library (OpenLibrary) or built in
code (pkg/dsl). Runs are checkpointed with Checkpoint and resumed with
Restore; pkg/session manages persisted runs on top of a ports.RunStore.
*/
package pdasim
