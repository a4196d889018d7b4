//go:build physicsdebug

package physics

// Built with -tags physicsdebug: structural invariant violations abort.
const debugAsserts = true
