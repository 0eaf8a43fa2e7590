// Package engine implements the incremental execution engine.
//
// The engine drives a long-lived, append-only compilation context on behalf
// of a pack session. Each Execute call is one submission: the engine works
// out which references and namespaces the live context has not seen yet,
// applies only those, then compiles and runs the code.
//
// STATE MACHINE (per pack.Session):
//
//	Uninitialized --first Execute--> Warm --Execute--> Warm
//
// The first submission builds the host binding, creates the live context and
// stores the engine's state in pack.Session.State under SessionKey. Later
// submissions find that state and reuse it. Pack-session references are
// required on every submission; pack-session namespaces seed only the first. Nothing is ever retracted from a
// live context; the accumulated sets only grow, except through namespace
// recovery.
//
// PENDING IMPORTS:
//
// Namespaces are not applied eagerly. They wait in an engine-owned pending
// queue and travel with the next Submission. The queue is cleared once a
// submission compiles (whether or not it then runs cleanly). An
// unresolved-namespace compilation failure removes the offending names from
// both the queue and the accumulated set, so the session stays usable and
// the bad name is not retried unless the caller asks for it again.
//
// FAILURES:
//
// Compilation and runtime failures are returned as data inside Result, never
// as the error return. The error return is reserved for precondition
// violations and for failing to create the live context at all. Panics that
// escape the live context are recovered into ExecutionError.
//
// A session is not safe for concurrent submissions. Callers serialize.
package engine
