// Package harness runs end-to-end script scenarios.
//
// A scenario is a YAML file describing an in-memory file tree, a sequence of
// submissions (script files or inline code) and assertions over what the
// live context received. Each scenario runs through the real preprocessor,
// coordinator, engine and an in-memory history store. Only the compiler is
// replaced, by testutil.FakeCompiler, so the trace records exactly which
// references and namespaces each submission forwarded.
//
// Traces are deterministic: the pack session ID is fixed per scenario and
// sequence numbers come from the session clock. RunWithGolden compares the
// trace against testdata/golden/<name>.golden; regenerate with
//
//	go test ./internal/harness -update
package harness
