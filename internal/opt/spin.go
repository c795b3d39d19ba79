package opt

import (
	_ "unsafe" // for linkname
)

// ActiveSpinCnt_ is the number of PAUSE-style cycles performed by one DoSpin.
const ActiveSpinCnt_ = 30

// DoSpin executes ActiveSpinCnt_ hardware yield cycles.
//
//go:nosplit
func DoSpin() {
	runtime_doSpin()
}

// nolint:all
//
//go:linkname runtime_doSpin sync.runtime_doSpin
//goland:noinspection ALL
func runtime_doSpin()
