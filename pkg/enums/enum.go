// Package enums holds the string-backed states persisted in the database
// and carried on outbox events.
package enums

import (
	"fmt"
	"slices"
)

func known[T ~string](set []T, v T) bool {
	return slices.Contains(set, v)
}

func parse[T ~string](set []T, raw, what string) (T, error) {
	if v := T(raw); known(set, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", what, raw)
}
