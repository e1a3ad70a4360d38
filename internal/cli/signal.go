package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
)

// signalCause is the cancellation cause recorded when a signal arrives.
type signalCause struct{ sig os.Signal }

func (c signalCause) Error() string { return "received " + c.sig.String() }

// SignalContext is cancelled on SIGINT or SIGTERM and remembers which
// signal did it.
type SignalContext struct {
	context.Context
	cancel context.CancelCauseFunc
}

// NewSignalContext derives a SignalContext from parent. Call Cancel to
// release the signal handler.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancelCause(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			cancel(signalCause{sig: sig})
		case <-ctx.Done():
		}
	}()
	return &SignalContext{Context: ctx, cancel: cancel}
}

// Cancel cancels the context without a signal.
func (sc *SignalContext) Cancel() { sc.cancel(nil) }

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	var cause signalCause
	if errors.As(context.Cause(sc.Context), &cause) {
		return cause.sig
	}
	return nil
}
