package inventory

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// =============================================================================
// UNITS - Base units of tracked quantities
// =============================================================================

// Unit is the base unit a type is counted in.
type Unit string

const (
	UnitPiece      Unit = "pc"
	UnitMillimeter Unit = "mm"
	UnitCentimeter Unit = "cm"
	UnitMeter      Unit = "m"
	UnitMilliliter Unit = "ml"
	UnitDeciliter  Unit = "dl"
	UnitLiter      Unit = "l"
)

type unitFamily uint8

const (
	familyCount unitFamily = iota
	familyLength
	familyVolume
)

type unitInfo struct {
	family unitFamily
	factor int64 // in the smallest unit of the family
}

var units = map[Unit]unitInfo{
	UnitPiece:      {familyCount, 1},
	UnitMillimeter: {familyLength, 1},
	UnitCentimeter: {familyLength, 10},
	UnitMeter:      {familyLength, 1000},
	UnitMilliliter: {familyVolume, 1},
	UnitDeciliter:  {familyVolume, 100},
	UnitLiter:      {familyVolume, 1000},
}

// ParseUnit accepts a unit symbol; empty means pieces.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(s)))
	if u == "" {
		return UnitPiece, nil
	}
	if _, ok := units[u]; !ok {
		return "", fmt.Errorf("%w: unknown unit %q", ErrInvalidQuantity, s)
	}
	return u, nil
}

// ParseQuantity converts a user quantity such as "1.5m", "150" or "3 pc"
// into a whole number of target units. A bare number is in the target unit.
// The result is rounded half up.
func ParseQuantity(s string, target Unit) (uint64, error) {
	if target == "" {
		target = UnitPiece
	}
	to, ok := units[target]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidQuantity, target)
	}

	s = strings.TrimSpace(s)
	split := strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsSpace(r)
	})
	number, symbol := s, ""
	if split >= 0 {
		number, symbol = s[:split], strings.TrimSpace(s[split:])
	}

	value, err := decimal.NewFromString(number)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, s)
	}
	if value.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidQuantity, s)
	}

	from := to
	if symbol != "" {
		u, err := ParseUnit(symbol)
		if err != nil {
			return 0, err
		}
		from = units[u]
	}
	if from.family != to.family {
		return 0, fmt.Errorf("%w: %q cannot be converted to %s", ErrInvalidQuantity, s, target)
	}

	base := value.Mul(decimal.NewFromInt(from.factor)).Div(decimal.NewFromInt(to.factor)).Round(0)
	n := base.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidQuantity, s)
	}
	return n.Uint64(), nil
}
