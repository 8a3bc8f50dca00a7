package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewCLI()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "custos "+version+"\n", out)
}

func TestInfo(t *testing.T) {
	out, err := execute(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "realloc")
	assert.Contains(t, out, "cached+lazy+autograd")
}

func TestBench(t *testing.T) {
	out, err := execute(t, "bench", "--len", "8", "--epochs", "3", "base", "cached+lazy+autograd")
	require.NoError(t, err)
	assert.Contains(t, out, "STACK")
	assert.Contains(t, out, "cached+lazy+autograd")
	assert.Contains(t, out, "Cache(")
}

func TestBench_Sequential(t *testing.T) {
	out, err := execute(t, "bench", "--len", "8", "--epochs", "2", "--workers", "1", "cached")
	require.NoError(t, err)
	assert.Contains(t, out, "1 kernel workers")
}

func TestBench_AllStacksAgree(t *testing.T) {
	for _, name := range stackNames() {
		res, err := stacks[name](16, 2)
		require.NoError(t, err, name)
		assert.InDelta(t, 16.0, float64(res.loss), 1e-6, name)
		assert.Equal(t, 2, res.epochs)
	}
}

func TestBench_UnknownStack(t *testing.T) {
	_, err := execute(t, "bench", "gpu-magic")
	assert.ErrorContains(t, err, "unknown stack")
}
