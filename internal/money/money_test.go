package money

import "testing"

func TestComputeReferenceCase(t *testing.T) {
	// 2×50€ + 1×30€ = 130.00，24% 税 = 31.20，合计 161.20
	lines := []Line{
		{Description: "Brake pads", Quantity: 2, UnitPriceCents: 5000},
		{Description: "Oil filter", Quantity: 1, UnitPriceCents: 3000},
	}

	a := Compute(lines, DefaultVATRateBasisPoints)
	if a.SubtotalCents != 13000 {
		t.Fatalf("subtotal = %d, want 13000", a.SubtotalCents)
	}
	if a.VATCents != 3120 {
		t.Fatalf("vat = %d, want 3120", a.VATCents)
	}
	if a.TotalCents != 16120 {
		t.Fatalf("total = %d, want 16120", a.TotalCents)
	}

	if FormatEuro(a.SubtotalCents) != "130.00" {
		t.Fatalf("subtotal formatted = %s", FormatEuro(a.SubtotalCents))
	}
	if FormatEuro(a.VATCents) != "31.20" {
		t.Fatalf("vat formatted = %s", FormatEuro(a.VATCents))
	}
	if FormatEuro(a.TotalCents) != "161.20" {
		t.Fatalf("total formatted = %s", FormatEuro(a.TotalCents))
	}
}

func TestLineDefaults(t *testing.T) {
	// 数量/单价缺省时按 1 × 0 计入
	if got := Subtotal([]Line{{Description: "Inspection"}}); got != 0 {
		t.Fatalf("defaulted line subtotal = %d, want 0", got)
	}
	// 负输入不允许进入求和
	if got := Subtotal([]Line{{Quantity: -3, UnitPriceCents: -500}}); got != 0 {
		t.Fatalf("negative inputs should clamp, got %d", got)
	}
	// 数量 0 按 1 计
	if got := Subtotal([]Line{{Quantity: 0, UnitPriceCents: 250}}); got != 250 {
		t.Fatalf("zero quantity should default to 1, got %d", got)
	}
}

func TestVATRounding(t *testing.T) {
	// 1 分 × 24% = 0.24 分，四舍五入为 0
	if got := VAT(1, 2400); got != 0 {
		t.Fatalf("VAT(1) = %d, want 0", got)
	}
	// 3 分 × 24% = 0.72 分，四舍五入为 1
	if got := VAT(3, 2400); got != 1 {
		t.Fatalf("VAT(3) = %d, want 1", got)
	}
	// 税率缺省回落到 24%
	if got := VAT(10000, 0); got != 2400 {
		t.Fatalf("VAT default rate = %d, want 2400", got)
	}
}

func TestSubtotalNoDriftOverManyLines(t *testing.T) {
	// 0.10€ × 10000 行，整数分运算不会出现累计漂移
	lines := make([]Line, 10000)
	for i := range lines {
		lines[i] = Line{Description: "wash", Quantity: 1, UnitPriceCents: 10}
	}
	if got := Subtotal(lines); got != 100000 {
		t.Fatalf("subtotal = %d, want 100000", got)
	}
}

func TestParseEuro(t *testing.T) {
	cases := map[string]int64{
		"130.00": 13000,
		"31.2":   3120,
		"0.05":   5,
		"7":      700,
		"-12.34": -1234,
	}
	for in, want := range cases {
		got, err := ParseEuro(in)
		if err != nil {
			t.Fatalf("ParseEuro(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseEuro(%q) = %d, want %d", in, got, want)
		}
	}

	for _, bad := range []string{"", "1.234", "12,34", "abc"} {
		if _, err := ParseEuro(bad); err == nil {
			t.Fatalf("ParseEuro(%q) should fail", bad)
		}
	}
}
