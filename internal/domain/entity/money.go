package entity

import "math"

// MaterialAmountDelta is the smallest total-amount change that forces a
// draft's approver to be re-resolved.
const MaterialAmountDelta = 0.01

// Round2 rounds a currency-less amount to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AmountChanged reports whether two totals differ by a material amount
func AmountChanged(a, b float64) bool {
	return math.Abs(a-b) >= MaterialAmountDelta
}
