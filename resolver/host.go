package resolver

import "context"

// Handler processes a request at one stage.
//
// handled=false lets the pipeline continue with the next handler. Any
// handled=true return ends the stage, including one with a nil Result and a
// nil error, which means "nothing found, stop looking".
type Handler func(ctx context.Context, req Request) (res *Result, handled bool, err error)

// Host is the part of a resolution pipeline plugins see.
type Host interface {
	// Tap registers handler on stage. Handlers run in registration order,
	// ahead of the stage's built-in behaviour.
	Tap(stage, name string, handler Handler)
	// DoResolve runs req through stage, recording message in its trace.
	DoResolve(ctx context.Context, stage string, req Request, message string) (*Result, bool, error)
}

// Plugin installs handlers on a Host.
type Plugin interface {
	Apply(host Host)
}
