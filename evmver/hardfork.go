// Package evmver resolves the EVM_VERSION macro and checks the `solc`/`yulc`
// compiler-version pragmas (spec §6), grounded on the semver range matching
// the nspcc-dev/neo-go and go-ethereum manifests in the example pack both
// depend on github.com/blang/semver/v4 for.
package evmver

import (
	"fmt"

	"github.com/blang/semver/v4"
)

// ordinal assigns each named hard fork a monotonically increasing number so
// `EVM_VERSION >= cancun`-style comparisons in folded conditionals reduce to
// plain integer comparison once expanded.
var ordinal = map[string]int{
	"frontier":        200000,
	"homestead":       201603,
	"tangerinewhistle": 201610,
	"spuriousdragon":  201611,
	"byzantium":       201710,
	"constantinople":  201902,
	"petersburg":      201903,
	"istanbul":        201912,
	"berlin":          202104,
	"london":          202108,
	"paris":           202209,
	"shanghai":        202304,
	"cancun":          300000,
}

// Names lists the recognized hard fork identifiers, oldest first.
func Names() []string {
	return []string{
		"frontier", "homestead", "tangerinewhistle", "spuriousdragon",
		"byzantium", "constantinople", "petersburg", "istanbul",
		"berlin", "london", "paris", "shanghai", "cancun",
	}
}

// Ordinal returns the fork's ordinal, or an error if the name is unknown.
func Ordinal(name string) (int, error) {
	n, ok := ordinal[name]
	if !ok {
		return 0, fmt.Errorf("unknown EVM hard fork %q", name)
	}
	return n, nil
}

// AtLeast reports whether fork `have` is at or after fork `want`.
func AtLeast(have, want string) (bool, error) {
	h, err := Ordinal(have)
	if err != nil {
		return false, err
	}
	w, err := Ordinal(want)
	if err != nil {
		return false, err
	}
	return h >= w, nil
}

// CheckPragma validates a `pragma solc "..."` / `pragma yulc "..."` version
// range against the compiler's own version. constraint is parsed with
// blang/semver's range grammar (">=0.8.0 <0.9.0", "^1.2.3", etc).
func CheckPragma(kind, constraint, actual string) error {
	rng, err := semver.ParseRange(constraint)
	if err != nil {
		return fmt.Errorf("pragma %s: invalid version constraint %q: %w", kind, constraint, err)
	}
	v, err := semver.Parse(actual)
	if err != nil {
		return fmt.Errorf("pragma %s: invalid compiler version %q: %w", kind, actual, err)
	}
	if !rng(v) {
		return fmt.Errorf("pragma %s: compiler version %s does not satisfy %q", kind, actual, constraint)
	}
	return nil
}
