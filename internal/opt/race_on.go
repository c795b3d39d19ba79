//go:build race

package opt

// Race_ under race detector. Allocation counts and spin timings are not
// representative, so tests relying on them check this first.
const Race_ = true
