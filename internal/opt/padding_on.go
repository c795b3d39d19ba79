//go:build !(amd64 || 386 || arm || mips || mipsle || wasm) && !semalock_disable_padding && !semalock_enable_padding

package opt

import (
	"unsafe"
)

// Stripe_ holds one carrier's event counters.
// Padding is automatically enabled for architectures that are NOT:
// - amd64 (x86_64): Hardware optimizations often make padding less critical
// - 32-bit architectures (386, arm, mips, mipsle, wasm): Smaller cache lines/memory constraints
//
// Carriers update their own stripe on every park and wakeup, while Stats
// readers sweep all of them, so each stripe gets a line to itself.
type Stripe_ struct {
	C [StripeSlots_]uintptr // Counter values, accessed atomically
	_ [(CacheLineSize_ - unsafe.Sizeof(struct {
		C [StripeSlots_]uintptr
	}{})%CacheLineSize_) % CacheLineSize_]byte
}
