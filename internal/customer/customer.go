package customer

import (
	"strings"
	"time"

	"github.com/GarageDesk/GarageDesk/internal/common/errs"
)

// Customer 是 customers 表的 GORM 模型。
type Customer struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;size:36" json:"user_id"` // 建档人（登记该客户的账号）
	Name      string    `gorm:"index;size:128;not null" json:"name"`
	Email     string    `gorm:"size:128" json:"email"`
	Phone     string    `gorm:"size:32" json:"phone"`
	Address   string    `gorm:"size:255" json:"address"`
	Notes     string    `gorm:"size:500" json:"notes"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Validate 入库前的基本校验。
func (c *Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errs.Invalidf("customer name is required")
	}
	if len(c.Notes) > 500 {
		return errs.Invalidf("customer notes exceed 500 characters")
	}
	return nil
}
