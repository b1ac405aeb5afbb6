package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKnownRuntime(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"node", true},
		{"node-eval", true},
		{"deno", true},
		{"deno-eval", true},
		{"shell", true},
		{"bash", true},
		{"pwsh", true},
		{"", false},
		{"Node", false},
		{"node ", false},
		{"python", false},
		{"unknown-x", false},
		{"node-eval\x00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsKnownRuntime(tt.name))
		})
	}
}

func TestRuntimeIDsInLockstep(t *testing.T) {
	ids := RuntimeIDs()
	seen := make(map[RuntimeID]bool, len(ids))

	for _, id := range ids {
		assert.False(t, seen[id], "duplicate runtime %q", id)
		seen[id] = true

		assert.True(t, IsKnownRuntime(string(id)), "runtime %q not accepted by IsKnownRuntime", id)

		image, err := DefaultImage(id)
		require.NoError(t, err)
		assert.NotEmpty(t, image)

		resolved, err := Resolve(id, "x", nil)
		require.NoError(t, err, "runtime %q has no resolver branch", id)
		assert.Equal(t, image, resolved.Image)
		assert.NotEmpty(t, resolved.Args)
	}

	assert.Len(t, ids, 7)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		runtime  RuntimeID
		code     string
		image    string
		expected []string
	}{
		{RuntimeNode, "console.log(1+1)", "node", []string{"node", "-e", "console.log(1+1)"}},
		{RuntimeNodeEval, "1+1", "node", []string{"node", "-e", `console.log(eval("1+1"))`}},
		{RuntimeDeno, "const x: number = 1", "denoland/deno", []string{"deno", "eval", "--check", "const x: number = 1"}},
		{RuntimeDenoEval, "1+1", "denoland/deno", []string{"deno", "eval", "--check", "--print", "1+1"}},
		{RuntimeShell, "echo hi", "alpine", []string{"sh", "-c", "echo hi"}},
		{RuntimeBash, "echo $BASH_VERSION", "bash", []string{"bash", "-c", "echo $BASH_VERSION"}},
		{RuntimePwsh, "Write-Output 1", "mcr.microsoft.com/powershell", []string{"pwsh", "-NoProfile", "-NonInteractive", "-Command", "Write-Output 1"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.runtime), func(t *testing.T) {
			resolved, err := Resolve(tt.runtime, tt.code, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.image, resolved.Image)
			assert.Equal(t, tt.expected, resolved.Args)
		})
	}
}

func TestResolveUnknownRuntime(t *testing.T) {
	for _, id := range []RuntimeID{"", "unknown-x", "python", "NODE"} {
		t.Run(string(id), func(t *testing.T) {
			_, err := Resolve(id, "1", nil)
			require.ErrorIs(t, err, ErrUnknownRuntime)

			_, err = DefaultImage(id)
			require.ErrorIs(t, err, ErrUnknownRuntime)
		})
	}
}

func TestResolveImageOverride(t *testing.T) {
	images := map[RuntimeID]string{
		RuntimeNode: "node:22-alpine",
		RuntimeBash: "",
	}

	resolved, err := Resolve(RuntimeNode, "1", images)
	require.NoError(t, err)
	assert.Equal(t, "node:22-alpine", resolved.Image)

	// node-eval shares the image family but has its own override slot
	resolved, err = Resolve(RuntimeNodeEval, "1", images)
	require.NoError(t, err)
	assert.Equal(t, ImageNode, resolved.Image)

	resolved, err = Resolve(RuntimeBash, "true", images)
	require.NoError(t, err)
	assert.Equal(t, ImageBash, resolved.Image)
}

func TestResolveKeepsCodeAsSingleArgument(t *testing.T) {
	code := `echo "a b"; rm -rf / # $(whoami) ` + "`id`"
	for _, id := range []RuntimeID{RuntimeNode, RuntimeDeno, RuntimeDenoEval, RuntimeShell, RuntimeBash, RuntimePwsh} {
		resolved, err := Resolve(id, code, nil)
		require.NoError(t, err)
		assert.Equal(t, code, resolved.Args[len(resolved.Args)-1], "runtime %q", id)
	}
}
