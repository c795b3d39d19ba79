//go:build (amd64 || 386 || arm || mips || mipsle || wasm) && !semalock_disable_padding && !semalock_enable_padding

package opt

// Stripe_ holds one carrier's event counters.
// Padding is disabled by default for:
// - amd64
// - 32-bit architectures (386, arm, mips, mipsle, wasm)
type Stripe_ struct {
	C [StripeSlots_]uintptr // Counter values, accessed atomically
}
