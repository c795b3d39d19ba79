//go:build semalock_enable_padding

package opt

import (
	"unsafe"
)

// Stripe_ holds one carrier's event counters.
// Padding is force-enabled via the semalock_enable_padding build tag.
// Use: go build -tags=semalock_enable_padding
type Stripe_ struct {
	C [StripeSlots_]uintptr // Counter values, accessed atomically
	_ [(CacheLineSize_ - unsafe.Sizeof(struct {
		C [StripeSlots_]uintptr
	}{})%CacheLineSize_) % CacheLineSize_]byte
}
