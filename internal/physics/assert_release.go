//go:build !physicsdebug

package physics

const debugAsserts = false
