//go:build semalock_disable_padding

package opt

// Stripe_ holds one carrier's event counters.
// Padding is force-disabled via the semalock_disable_padding build tag.
// Use: go build -tags=semalock_disable_padding
type Stripe_ struct {
	C [StripeSlots_]uintptr // Counter values, accessed atomically
}
