// Copyright 2025 Agora Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// BpsDenominator is the denominator for all basis-point rates. Rates and
// multipliers are carried in basis points so balance-affecting arithmetic
// stays integral.
const BpsDenominator = 10_000

// Amount is a token quantity in minor units (the smallest indivisible unit
// of the ledger's token). All arithmetic is exact integer arithmetic; the
// number of decimal places is declared by the ledger and only used for
// formatting.
type Amount int64

// NewAmount builds an Amount from a whole-token count and the declared
// number of decimal places.
func NewAmount(whole int64, decimals uint32) Amount {
	scale := int64(1)
	for range decimals {
		scale *= 10
	}
	return Amount(whole * scale)
}

// MulBps multiplies the amount by a basis-point rate, truncating toward
// zero. 10_000 bps is the identity.
func (a Amount) MulBps(bps int64) Amount {
	result := new(big.Int).Mul(
		big.NewInt(int64(a)),
		big.NewInt(bps),
	)
	result.Quo(result, big.NewInt(BpsDenominator))
	return Amount(result.Int64())
}

// MulDiv returns a * num / den with the intermediate product computed at
// arbitrary precision, truncating toward zero. It panics on a zero
// denominator, matching integer division.
func (a Amount) MulDiv(num, den Amount) Amount {
	result := new(big.Int).Mul(
		big.NewInt(int64(a)),
		big.NewInt(int64(num)),
	)
	result.Quo(result, big.NewInt(int64(den)))
	return Amount(result.Int64())
}

// MulRem returns the remainder of (a * num) / den. Used for deterministic
// largest-remainder apportionment.
func (a Amount) MulRem(num, den Amount) Amount {
	result := new(big.Int).Mul(
		big.NewInt(int64(a)),
		big.NewInt(int64(num)),
	)
	result.Rem(result, big.NewInt(int64(den)))
	return Amount(result.Int64())
}

// Format renders the amount with the given number of decimal places.
func (a Amount) Format(decimals uint32) string {
	if decimals == 0 {
		return fmt.Sprintf("%d", int64(a))
	}
	minor := int64(a)
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	scale := int64(1)
	for range decimals {
		scale *= 10
	}
	return fmt.Sprintf(
		"%s%d.%0*d",
		sign,
		minor/scale,
		decimals,
		minor%scale,
	)
}

// ParseAmount parses a decimal string into an Amount with the given number
// of decimal places. Excess fractional digits and any non-digit residue are
// rejected rather than silently truncated.
func ParseAmount(s string, decimals uint32) (Amount, error) {
	if !strings.ContainsAny(s, "0123456789") {
		return 0, fmt.Errorf("malformed amount %q", s)
	}
	whole, frac := s, ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		whole, frac = s[:idx], s[idx+1:]
	}
	if len(frac) > int(decimals) {
		return 0, fmt.Errorf(
			"amount %q has more than %d decimal places",
			s,
			decimals,
		)
	}
	for len(frac) < int(decimals) {
		frac += "0"
	}
	minor, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed amount %q: %w", s, err)
	}
	return Amount(minor), nil
}
