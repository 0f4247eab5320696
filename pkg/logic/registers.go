package logic

import (
	"sync/atomic"
)

// RegisterSet is one consistent view of the bound registers.
type RegisterSet struct {
	Version uint64
	Counter float64
	Unit    any
	This    any
	IPT     float64
}

// Registers publishes RegisterSet snapshots from the worker to the host.
// Load never observes a partially written set.
type Registers struct {
	current atomic.Pointer[RegisterSet]
	version atomic.Uint64
}

// Publish stores a copy of set under the next version number and returns it.
func (r *Registers) Publish(set RegisterSet) uint64 {
	set.Version = r.version.Add(1)
	r.current.Store(&set)
	return set.Version
}

// Load returns the latest snapshot, or the zero set before the first Publish.
func (r *Registers) Load() RegisterSet {
	if p := r.current.Load(); p != nil {
		return *p
	}
	return RegisterSet{}
}

// Capture reads the bound registers of exec.
func Capture(exec Executor) RegisterSet {
	return RegisterSet{
		Counter: exec.Var(RegCounter).Num(),
		Unit:    exec.Var(RegUnit).Obj(),
		This:    exec.Var(RegThis).Obj(),
		IPT:     exec.Var(RegIPT).Num(),
	}
}
