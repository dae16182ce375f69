// Package lot rounds raw trade volumes to exchange-legal quantities.
package lot

import "github.com/shopspring/decimal"

// Quantize maps a raw native volume to the nearest integer multiple of the
// asset's lot step. The step is a decimal with an explicit scale, so
// "0.001" and "0.00100000" quantize identically. Quantizing an already
// quantized value is a no-op.
func Quantize(volume float64, step decimal.Decimal) float64 {
	if step.Sign() <= 0 {
		return volume
	}
	v := decimal.NewFromFloat(volume)
	n := v.Div(step).Round(0)
	q, _ := n.Mul(step).Float64()
	return q
}

// QuantizeDecimal is Quantize over decimals, for callers that stay in
// decimal space.
func QuantizeDecimal(volume, step decimal.Decimal) decimal.Decimal {
	if step.Sign() <= 0 {
		return volume
	}
	return volume.Div(step).Round(0).Mul(step)
}
