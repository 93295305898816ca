package workorder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GarageDesk/GarageDesk/internal/money"
)

// InvoiceLine 单据上的一行：服务行 + 行小计展示。
type InvoiceLine struct {
	Description    string `json:"description"`
	Quantity       int64  `json:"quantity"`
	UnitPrice      string `json:"unit_price"`
	LineTotal      string `json:"line_total"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// Invoice 打印/导出用的单据视图。货币字段一律走 FormatEuro 展示。
type Invoice struct {
	RecordID string    `json:"record_id"`
	Date     time.Time `json:"date"`
	Summary  string    `json:"summary"`
	Notes    string    `json:"notes"`

	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	VehicleLabel  string `json:"vehicle_label"`
	LicensePlate  string `json:"license_plate"`

	Lines []InvoiceLine `json:"lines"`

	VATRateBasisPoints int64  `json:"vat_rate_basis_points"`
	Subtotal           string `json:"subtotal"`
	VAT                string `json:"vat"`
	Total              string `json:"total"`
	SubtotalCents      int64  `json:"subtotal_cents"`
	VATCents           int64  `json:"vat_cents"`
	TotalCents         int64  `json:"total_cents"`
}

// Exporter 单据导出端口。PDF 渲染属于外部边界，领域层只产出 Invoice。
type Exporter interface {
	// Export 渲染单据，返回字节流与 Content-Type。
	Export(ctx context.Context, inv Invoice) ([]byte, string, error)
}

// BuildInvoice 导出前重新取最新落库记录，绝不用列表里的陈旧行渲染单据。
func (s *Service) BuildInvoice(ctx context.Context, recordID string) (*Invoice, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	rec, err := s.repo.GetByID(ctx, strings.TrimSpace(recordID))
	if err != nil {
		return nil, err
	}
	cust, err := s.customers.FindByID(ctx, rec.CustomerID)
	if err != nil {
		return nil, err
	}
	veh, err := s.vehicles.FindByID(ctx, rec.VehicleID)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		RecordID: rec.ID,
		Date:     rec.Date,
		Summary:  rec.Summary,
		Notes:    rec.Notes,

		CustomerName:  cust.Name,
		CustomerPhone: cust.Phone,
		VehicleLabel:  veh.Label(),
		LicensePlate:  veh.LicensePlate,

		VATRateBasisPoints: rec.VATRateBasisPoints,
		Subtotal:           money.FormatEuro(rec.SubtotalCents),
		VAT:                money.FormatEuro(rec.VATCents),
		Total:              money.FormatEuro(rec.TotalCents),
		SubtotalCents:      rec.SubtotalCents,
		VATCents:           rec.VATCents,
		TotalCents:         rec.TotalCents,
	}
	for _, l := range rec.Lines {
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		price := l.UnitPriceCents
		if price < 0 {
			price = 0
		}
		lineTotal := qty * price
		inv.Lines = append(inv.Lines, InvoiceLine{
			Description:    l.Description,
			Quantity:       qty,
			UnitPrice:      money.FormatEuro(price),
			LineTotal:      money.FormatEuro(lineTotal),
			LineTotalCents: lineTotal,
		})
	}
	return inv, nil
}

// PlainTextExporter 纯文本单据导出，作为未接入 PDF 渲染服务时的缺省实现。
type PlainTextExporter struct{}

func (PlainTextExporter) Export(_ context.Context, inv Invoice) ([]byte, string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Invoice %s\n", inv.RecordID)
	fmt.Fprintf(&b, "Date: %s\n", inv.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Customer: %s (%s)\n", inv.CustomerName, inv.CustomerPhone)
	fmt.Fprintf(&b, "Vehicle: %s [%s]\n\n", inv.VehicleLabel, inv.LicensePlate)
	for _, l := range inv.Lines {
		fmt.Fprintf(&b, "%-40s x%-3d %10s %12s\n", l.Description, l.Quantity, l.UnitPrice, l.LineTotal)
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\nVAT (%.2f%%): %s\nTotal: %s\n",
		inv.Subtotal, float64(inv.VATRateBasisPoints)/100, inv.VAT, inv.Total)
	if inv.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", inv.Notes)
	}
	return []byte(b.String()), "text/plain; charset=utf-8", nil
}
