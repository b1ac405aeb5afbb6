package sandbox

import (
	"errors"
	"fmt"
)

// RuntimeID selects the interpreter and image used to run a snippet
type RuntimeID string

// Runtime identifiers
const (
	RuntimeNode     RuntimeID = "node"
	RuntimeNodeEval RuntimeID = "node-eval"
	RuntimeDeno     RuntimeID = "deno"
	RuntimeDenoEval RuntimeID = "deno-eval"
	RuntimeShell    RuntimeID = "shell"
	RuntimeBash     RuntimeID = "bash"
	RuntimePwsh     RuntimeID = "pwsh"
)

// Default images per runtime family
const (
	ImageNode  = "node"
	ImageDeno  = "denoland/deno"
	ImageShell = "alpine"
	ImageBash  = "bash"
	ImagePwsh  = "mcr.microsoft.com/powershell"
)

// ErrUnknownRuntime is returned when a runtime identifier is outside the known set.
var ErrUnknownRuntime = errors.New("unknown runtime")

// ResolvedCommand is the image and in-container argument vector for one invocation.
type ResolvedCommand struct {
	Image string
	Args  []string
}

// RuntimeIDs returns every known runtime in a stable order.
func RuntimeIDs() []RuntimeID {
	return []RuntimeID{
		RuntimeNode,
		RuntimeNodeEval,
		RuntimeDeno,
		RuntimeDenoEval,
		RuntimeShell,
		RuntimeBash,
		RuntimePwsh,
	}
}

// IsKnownRuntime reports whether s names a supported runtime.
func IsKnownRuntime(s string) bool {
	switch RuntimeID(s) {
	case RuntimeNode, RuntimeNodeEval, RuntimeDeno, RuntimeDenoEval, RuntimeShell, RuntimeBash, RuntimePwsh:
		return true
	default:
		return false
	}
}

// DefaultImage returns the image used for id when no override is configured.
func DefaultImage(id RuntimeID) (string, error) {
	switch id {
	case RuntimeNode, RuntimeNodeEval:
		return ImageNode, nil
	case RuntimeDeno, RuntimeDenoEval:
		return ImageDeno, nil
	case RuntimeShell:
		return ImageShell, nil
	case RuntimeBash:
		return ImageBash, nil
	case RuntimePwsh:
		return ImagePwsh, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRuntime, id)
	}
}

// Resolve maps a runtime and code to the image and command to run inside the container.
// images overrides the default image per runtime and may be nil.
//
// The code is always handed to the interpreter as a single argument. Only the
// node-eval wrapper embeds it in a quoted literal, and that goes through
// EscapeStringLiteral.
func Resolve(id RuntimeID, code string, images map[RuntimeID]string) (ResolvedCommand, error) {
	image, err := DefaultImage(id)
	if err != nil {
		return ResolvedCommand{}, err
	}
	if override := images[id]; override != "" {
		image = override
	}

	var args []string
	switch id {
	case RuntimeNode:
		args = []string{"node", "-e", code}
	case RuntimeNodeEval:
		args = []string{"node", "-e", fmt.Sprintf("console.log(eval(%s))", EscapeStringLiteral(code))}
	case RuntimeDeno:
		args = []string{"deno", "eval", "--check", code}
	case RuntimeDenoEval:
		args = []string{"deno", "eval", "--check", "--print", code}
	case RuntimeShell:
		args = []string{"sh", "-c", code}
	case RuntimeBash:
		args = []string{"bash", "-c", code}
	case RuntimePwsh:
		args = []string{"pwsh", "-NoProfile", "-NonInteractive", "-Command", code}
	default:
		return ResolvedCommand{}, fmt.Errorf("%w: %q", ErrUnknownRuntime, id)
	}

	return ResolvedCommand{Image: image, Args: args}, nil
}
