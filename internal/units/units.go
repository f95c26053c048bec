// Package units converts quantities between the measurement units used for
// ingredients and recipes.
package units

import (
	"math"
	"strings"

	"bakery-backoffice/internal/apperr"
)

type Unit string

const (
	Milligram  Unit = "mg"
	Gram       Unit = "g"
	Kilogram   Unit = "kg"
	Millilitre Unit = "ml"
	Litre      Unit = "l"
	Count      Unit = "un"
)

type Family int

const (
	FamilyUnknown Family = iota
	FamilyMass
	FamilyVolume
	FamilyCount
)

func (f Family) String() string {
	switch f {
	case FamilyMass:
		return "mass"
	case FamilyVolume:
		return "volume"
	case FamilyCount:
		return "count"
	}
	return "unknown"
}

type unitInfo struct {
	family Family
	factor float64 // multiplier into the family canonical unit
}

var table = map[Unit]unitInfo{
	Milligram:  {FamilyMass, 0.001},
	Gram:       {FamilyMass, 1},
	Kilogram:   {FamilyMass, 1000},
	Millilitre: {FamilyVolume, 1},
	Litre:      {FamilyVolume, 1000},
	Count:      {FamilyCount, 1},
}

// Parse normalises a unit symbol. Symbols are case-insensitive.
func Parse(symbol string) (Unit, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(symbol)))
	if _, ok := table[u]; !ok {
		return "", apperr.New(apperr.KindUnknownUnit, "unknown unit %q", symbol)
	}
	return u, nil
}

func Valid(symbol string) bool {
	_, err := Parse(symbol)
	return err == nil
}

func FamilyOf(symbol string) Family {
	u, err := Parse(symbol)
	if err != nil {
		return FamilyUnknown
	}
	return table[u].family
}

func IsCount(symbol string) bool {
	return FamilyOf(symbol) == FamilyCount
}

func SameFamily(a, b string) bool {
	fa := FamilyOf(a)
	return fa != FamilyUnknown && fa == FamilyOf(b)
}

// Canonical returns the unit quantities of symbol's family are stored in:
// grams, millilitres or count.
func Canonical(symbol string) (Unit, error) {
	u, err := Parse(symbol)
	if err != nil {
		return "", err
	}
	switch table[u].family {
	case FamilyMass:
		return Gram, nil
	case FamilyVolume:
		return Millilitre, nil
	}
	return Count, nil
}

// Convert moves value from one unit to another within a family.
// Non-finite input converts to 0. Crossing families, including anything
// to or from the count unit, fails with KindIncompatibleUnit.
func Convert(value float64, from, to string) (float64, error) {
	src, err := Parse(from)
	if err != nil {
		return 0, err
	}
	dst, err := Parse(to)
	if err != nil {
		return 0, err
	}
	if !finite(value) {
		return 0, nil
	}
	if src == dst {
		return value, nil
	}
	si, di := table[src], table[dst]
	if si.family != di.family {
		return 0, apperr.New(apperr.KindIncompatibleUnit, "cannot convert %s (%s) to %s (%s)", src, si.family, dst, di.family)
	}
	return value * si.factor / di.factor, nil
}

// ToBase converts value into its family canonical unit. Unknown units and
// the count unit pass the value through unchanged.
func ToBase(value float64, unit string) float64 {
	if !finite(value) {
		return 0
	}
	u, err := Parse(unit)
	if err != nil {
		return value
	}
	return value * table[u].factor
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
