// Package sandbox runs untrusted code snippets in podman containers.
//
// A RuntimeID is resolved into an image and an in-container argument vector,
// wrapped in a podman invocation carrying resource limits, network isolation
// and a read-only root filesystem, and spawned as a child process. Both output
// streams are drained to completion before anything is reported.
//
// The package does not sandbox anything itself; isolation is whatever the
// engine enforces for the flags it is given.
//
// Usage:
//
//	launcher := sandbox.NewLauncher(logger)
//	produced, err := launcher.Run(ctx, sandbox.ExecutionConfig{
//	    Runtime: sandbox.RuntimeNode,
//	    Code:    "console.log(1+1)",
//	}, func(out string) { fmt.Println(out) }, func(errText string) { fmt.Fprintln(os.Stderr, errText) })
package sandbox
