//go:build !linux

package park

import "runtime"

func newPlatformSema() Sema {
	return NewWeighted()
}

func osyield() {
	runtime.Gosched()
}
