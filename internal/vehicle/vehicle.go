package vehicle

import (
	"strings"
	"time"

	"github.com/GarageDesk/GarageDesk/internal/common/errs"
)

// Vehicle 是 vehicles 表的 GORM 模型。客户删除时级联删除名下车辆。
type Vehicle struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	CustomerID   string    `gorm:"index;size:36;not null" json:"customer_id"`
	Make         string    `gorm:"size:64;not null" json:"make"`
	Model        string    `gorm:"size:64;not null" json:"model"`
	Year         int       `gorm:"not null" json:"year"`
	LicensePlate string    `gorm:"index;size:16" json:"license_plate"`
	VIN          string    `gorm:"size:17" json:"vin"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Label 列表里展示用的 "Make Model" 短名。
func (v *Vehicle) Label() string {
	return strings.TrimSpace(v.Make + " " + v.Model)
}

// Validate 入库前的基本校验。
func (v *Vehicle) Validate() error {
	if strings.TrimSpace(v.CustomerID) == "" {
		return errs.Invalidf("vehicle customer_id is required")
	}
	if strings.TrimSpace(v.Make) == "" || strings.TrimSpace(v.Model) == "" {
		return errs.Invalidf("vehicle make and model are required")
	}
	if v.Year != 0 && (v.Year < 1900 || v.Year > time.Now().Year()+1) {
		return errs.Invalidf("vehicle year %d out of range", v.Year)
	}
	if len(v.VIN) > 17 {
		return errs.Invalidf("vehicle vin exceeds 17 characters")
	}
	return nil
}
