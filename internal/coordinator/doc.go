// Package coordinator wires the Lane Supervisor, Dependency Scheduler,
// Stall & Recovery Controller, Dependency Resolver and Log Parser &
// Multiplexer into one run: it builds the concrete adapters each
// component's locally-declared port expects, owns the top-level tick
// loop, and turns an external interrupt into the term-then-kill
// shutdown sequence (§5). It holds no scheduling logic of its own —
// every decision about what runs next lives in internal/scheduler.
package coordinator
