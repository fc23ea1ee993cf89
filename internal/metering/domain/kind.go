// Package domain holds the metering vocabulary: utility kinds, billing
// months and dated cumulative readings.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidKind     = errors.New("invalid_utility_kind")
	ErrInvalidMonthKey = errors.New("invalid_month_key")
)

// Kind is a billed utility tracked as an independent cumulative counter.
type Kind string

const (
	KindElectric Kind = "electric"
	KindWater    Kind = "water"
)

// Kinds lists every billed kind in display order.
var Kinds = []Kind{KindElectric, KindWater}

func (k Kind) Valid() bool {
	switch k {
	case KindElectric, KindWater:
		return true
	default:
		return false
	}
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}
