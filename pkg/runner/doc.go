/*
Package runner implements the driver loop around a simulation engine.

The engine only knows how to compute one generation. The Runner decides how
many: it advances until the run halts, the step budget is spent, an accepting
configuration appears (WithStopOnAccept) or the context is canceled. Progress
is reported to a pluggable Handler (TextHandler, JSONHandler) and the run can
be checkpointed to a ports.RunStore after every generation.

# Usage

	r := runner.New(
		runner.WithBudget(100),
		runner.WithDedup(),
		runner.WithHandler(runner.NewTextHandler(os.Stdout)),
	)
	res, err := r.Run(ctx, engine)

Start runs the same loop on a background goroutine and returns a Handle that
stops it at the next generation boundary.
*/
package runner
