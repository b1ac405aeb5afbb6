package sandbox

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"mvdan.cc/sh/v3/syntax"
)

// Container paths and flag values fixed for every invocation
const (
	ContainerWorkdir = "/run"
	ImageVolumeMode  = "tmpfs"
	NetworkMode      = "none"
)

// Limits holds the normalized resource limits passed to the engine
type Limits struct {
	CPUs       float64
	Memory     string
	MemorySwap string
	TimeoutSec int
}

// Invocation is a fully resolved container engine call.
//
// Flags built from Limits and ExtraFlags are trusted; Command carries the
// untrusted payload and is always appended after the image.
type Invocation struct {
	Engine     string
	Limits     Limits
	ExtraFlags []string
	Command    ResolvedCommand
}

// Args returns the argument vector for the engine binary, excluding the binary itself.
func (i Invocation) Args() []string {
	args := []string{
		"run",
		"--cpus", strconv.FormatFloat(i.Limits.CPUs, 'f', -1, 64),
		"--image-volume", ImageVolumeMode,
		"--memory", i.Limits.Memory,
		"--memory-swap", i.Limits.MemorySwap,
		"--network", NetworkMode,
		"--read-only",
		"--rm",
		"--timeout", strconv.Itoa(i.Limits.TimeoutSec),
		"--workdir", ContainerWorkdir,
	}
	args = append(args, i.ExtraFlags...)
	args = append(args, i.Command.Image)
	return append(args, i.Command.Args...)
}

// String renders the invocation as a single line that a POSIX shell would
// split back into the same argument vector.
func (i Invocation) String() (string, error) {
	argv := append([]string{i.Engine}, i.Args()...)
	quoted := make([]string, 0, len(argv))
	for _, arg := range argv {
		q, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("failed to quote argument: %w", err)
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, " "), nil
}

// reservedFlags are set by Invocation.Args and may not be repeated by extra
// flags, since the engine keeps the last value it sees.
var reservedFlags = map[string]bool{
	"cpus":         true,
	"image-volume": true,
	"memory":       true,
	"memory-swap":  true,
	"net":          true,
	"network":      true,
	"read-only":    true,
	"rm":           true,
	"timeout":      true,
	"workdir":      true,
}

// ParseExtraFlags splits a configured flag string the way a shell would.
//
// Every field must be a long flag in --name=value form (--privileged=true for
// booleans) so that each field is consumed by the engine as exactly one flag
// and nothing can land in the image position. Flags that Invocation.Args sets
// itself are rejected.
func ParseExtraFlags(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	fields, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse extra flags: %w", err)
	}
	for _, f := range fields {
		name, _, hasValue := strings.Cut(strings.TrimPrefix(f, "--"), "=")
		if !strings.HasPrefix(f, "--") || name == "" || !hasValue {
			return nil, fmt.Errorf("extra flag %q must be written as --name=value", f)
		}
		if reservedFlags[name] {
			return nil, fmt.Errorf("extra flag %q overrides --%s set by the launcher", f, name)
		}
	}
	return fields, nil
}
