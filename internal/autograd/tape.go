// Package autograd records backward closures and owns gradient buffers.
package autograd

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// GradFn is a backward closure. It reads and accumulates gradients through grads.
type GradFn func(grads *Gradients) error

// Tape records backward closures during the forward pass and runs them in
// reverse order during the backward pass.
//
// Usage:
//
//	tape := NewTape()
//	// ... forward ops call tape.AddGradFn ...
//	err := tape.Backward()
type Tape struct {
	fns       []GradFn
	grads     *Gradients
	recording bool
	retain    bool
}

// NewTape creates a recording tape with empty gradient pools.
func NewTape() *Tape {
	return &Tape{
		fns:       make([]GradFn, 0, 64),
		grads:     NewGradients(),
		recording: true,
	}
}

// StartRecording enables closure recording.
func (t *Tape) StartRecording() {
	t.recording = true
}

// StopRecording disables closure recording.
func (t *Tape) StopRecording() {
	t.recording = false
}

// IsRecording returns true if the tape is currently recording closures.
func (t *Tape) IsRecording() bool {
	return t.recording
}

// SetRetain controls whether Backward keeps the recorded closures.
func (t *Tape) SetRetain(retain bool) {
	t.retain = retain
}

// AddGradFn records fn. Only records if the tape is currently recording.
func (t *Tape) AddGradFn(fn GradFn) bool {
	if !t.recording {
		return false
	}
	t.fns = append(t.fns, fn)
	return true
}

// Gradients returns the gradient pools.
func (t *Tape) Gradients() *Gradients {
	return t.grads
}

// Len returns the number of recorded closures.
func (t *Tape) Len() int {
	return len(t.fns)
}

// Clear removes all recorded closures. Gradients and recording state are preserved.
func (t *Tape) Clear() {
	clear(t.fns)
	t.fns = t.fns[:0]
}

// Backward runs the recorded closures in reverse order. Recording is suspended
// while it runs so closures cannot record further closures. The first failing
// closure aborts the pass and the tape is left unchanged. On success the
// closures are cleared unless retain is set.
func (t *Tape) Backward() error {
	if len(t.fns) == 0 {
		return nil
	}

	wasRecording := t.recording
	t.recording = false
	defer func() {
		t.recording = wasRecording
	}()

	klog.V(1).Infof("autograd: backward over %d closures", len(t.fns))
	for i := len(t.fns) - 1; i >= 0; i-- {
		if err := t.fns[i](t.grads); err != nil {
			return errors.Wrapf(err, "backward closure %d", i)
		}
	}
	if !t.retain {
		t.Clear()
	}
	return nil
}
