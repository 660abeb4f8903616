package facturacion

import "github.com/shopspring/decimal"

var (
	cien    = decimal.NewFromInt(100)
	tasa21  = decimal.RequireFromString("21")
	tasa105 = decimal.RequireFromString("10.5")
	tasa27  = decimal.RequireFromString("27")
)

// Totales holds the computed amounts of a comprobante, with the taxed base
// tracked per rate bucket.
type Totales struct {
	Subtotal decimal.Decimal
	Base21   decimal.Decimal
	Iva21    decimal.Decimal
	Base105  decimal.Decimal
	Iva105   decimal.Decimal
	Base27   decimal.Decimal
	Iva27    decimal.Decimal
	Total    decimal.Decimal
}

// ImpIVA is the sum of every tax bucket.
func (t Totales) ImpIVA() decimal.Decimal {
	return t.Iva21.Add(t.Iva105).Add(t.Iva27)
}

// lineSubtotal applies the percentage discount to quantity times unit price.
func lineSubtotal(it Item) decimal.Decimal {
	sub := it.Cantidad.Mul(it.PrecioUnitario)
	if it.DescuentoPorcentaje.IsPositive() {
		sub = sub.Sub(sub.Mul(it.DescuentoPorcentaje).Div(cien))
	}
	return sub
}

// CalcularTotales computes subtotal, per-rate tax buckets and total. Lines at
// 0% or at a rate outside the supported buckets contribute to the subtotal
// only. Accumulation is exact; the returned amounts are rounded to two
// decimals, half away from zero, at this boundary only.
func CalcularTotales(items []Item) Totales {
	var t Totales
	for _, it := range items {
		sub := lineSubtotal(it)
		t.Subtotal = t.Subtotal.Add(sub)

		switch {
		case it.IvaPorcentaje.Equal(tasa21):
			t.Base21 = t.Base21.Add(sub)
			t.Iva21 = t.Iva21.Add(sub.Mul(tasa21).Div(cien))
		case it.IvaPorcentaje.Equal(tasa105):
			t.Base105 = t.Base105.Add(sub)
			t.Iva105 = t.Iva105.Add(sub.Mul(tasa105).Div(cien))
		case it.IvaPorcentaje.Equal(tasa27):
			t.Base27 = t.Base27.Add(sub)
			t.Iva27 = t.Iva27.Add(sub.Mul(tasa27).Div(cien))
		}
	}
	t.Total = t.Subtotal.Add(t.Iva21).Add(t.Iva105).Add(t.Iva27)

	t.Subtotal = t.Subtotal.Round(2)
	t.Base21 = t.Base21.Round(2)
	t.Iva21 = t.Iva21.Round(2)
	t.Base105 = t.Base105.Round(2)
	t.Iva105 = t.Iva105.Round(2)
	t.Base27 = t.Base27.Round(2)
	t.Iva27 = t.Iva27.Round(2)
	t.Total = t.Total.Round(2)
	return t
}
