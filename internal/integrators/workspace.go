package integrators

import "github.com/san-kum/odesim/internal/dynamo"

// Workspace holds the buffers reused across steps. Buffers are only
// reallocated when the dimension or stage count changes.
type Workspace struct {
	k      []dynamo.State
	ymid   dynamo.State
	ynew   dynamo.State
	ytrial dynamo.State
	errv   dynamo.State
	scaled dynamo.State
	dim    int
}

func newWorkspace(dim, stages int) *Workspace {
	w := &Workspace{}
	w.ensure(dim, stages)
	return w
}

func (w *Workspace) ensure(dim, stages int) {
	if w.dim == dim && len(w.k) == stages {
		return
	}
	w.dim = dim
	w.k = make([]dynamo.State, stages)
	for i := range w.k {
		w.k[i] = make(dynamo.State, dim)
	}
	w.ymid = make(dynamo.State, dim)
	w.ynew = make(dynamo.State, dim)
	w.ytrial = make(dynamo.State, dim)
	w.errv = make(dynamo.State, dim)
	w.scaled = make(dynamo.State, dim)
}

func (w *Workspace) Dimension() int { return w.dim }

func (w *Workspace) Stages() int { return len(w.k) }
