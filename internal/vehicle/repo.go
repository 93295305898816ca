package vehicle

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/GarageDesk/GarageDesk/internal/common/errs"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Upsert(ctx context.Context, v *Vehicle) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Save(v).Error
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Vehicle, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// ListByCustomer 某客户名下全部车辆，按创建时间倒序。
func (r *Repo) ListByCustomer(ctx context.Context, customerID string) ([]Vehicle, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var vehicles []Vehicle
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at desc").
		Find(&vehicles).Error
	return vehicles, err
}

// Count 全库车辆数。
func (r *Repo) Count(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	var total int64
	err := r.db.WithContext(ctx).Model(&Vehicle{}).Count(&total).Error
	return total, err
}

// CountByCustomer 各客户名下车辆数，用于 multi-vehicle 过滤与统计。
func (r *Repo) CountByCustomer(ctx context.Context, customerID string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	var total int64
	err := r.db.WithContext(ctx).Model(&Vehicle{}).
		Where("customer_id = ?", customerID).
		Count(&total).Error
	return total, err
}

// Delete 删除单台车辆。传入 tx 时在该事务内执行，供级联删除使用。
func (r *Repo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := tx
	if db == nil {
		if r == nil || r.db == nil {
			return fmt.Errorf("repo db is nil")
		}
		db = r.db
	}
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&Vehicle{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteByCustomer 级联：删除客户时清空其名下车辆。
func (r *Repo) DeleteByCustomer(ctx context.Context, tx *gorm.DB, customerID string) error {
	db := tx
	if db == nil {
		if r == nil || r.db == nil {
			return fmt.Errorf("repo db is nil")
		}
		db = r.db
	}
	return db.WithContext(ctx).Where("customer_id = ?", customerID).Delete(&Vehicle{}).Error
}
