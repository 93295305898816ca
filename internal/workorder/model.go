package workorder

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GarageDesk/GarageDesk/internal/money"
)

// Lines 服务行集合，整列落成 JSON。
type Lines []money.Line

// Value 实现 driver.Valuer。
func (l Lines) Value() (driver.Value, error) {
	if l == nil {
		l = Lines{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner。
func (l *Lines) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = Lines{}
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported lines column type %T", src)
	}
}

// ServiceRecord 是 service_records 表的 GORM 模型。
// 金额三元组在 Finalize 时一次性派生并随记录落库，读取时不再重算。
type ServiceRecord struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	CustomerID string `gorm:"index;size:36;not null" json:"customer_id"`
	VehicleID  string `gorm:"index;size:36;not null" json:"vehicle_id"`

	// Date 服务日期（业务日期，非入库时间）
	Date    time.Time `gorm:"index;not null" json:"date"`
	Summary string    `gorm:"size:255;not null" json:"summary"`
	Lines   Lines     `gorm:"type:json" json:"lines"`
	Notes   string    `gorm:"size:500" json:"notes"`
	Mileage int64     `gorm:"not null;default:0" json:"mileage"`

	// 金额信息（单位：分）
	SubtotalCents      int64 `gorm:"not null;default:0" json:"subtotal_cents"`
	VATCents           int64 `gorm:"not null;default:0" json:"vat_cents"`
	TotalCents         int64 `gorm:"not null;default:0" json:"total_cents"`
	VATRateBasisPoints int64 `gorm:"not null;default:0" json:"vat_rate_basis_points"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ServiceRecord) TableName() string { return "service_records" }
