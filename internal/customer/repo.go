package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/GarageDesk/GarageDesk/internal/common/errs"
	"github.com/GarageDesk/GarageDesk/internal/query"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// DB 暴露底层连接，用于跨仓储的级联事务。
func (r *Repo) DB() *gorm.DB {
	if r == nil {
		return nil
	}
	return r.db
}

func (r *Repo) Create(ctx context.Context, c *Customer) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repo) Update(ctx context.Context, c *Customer) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Customer, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var c Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// buildQuery 搜索 + 过滤的统一谓词，分页前先作用于全集。
func (r *Repo) buildQuery(ctx context.Context, p query.Params, now time.Time) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&Customer{})

	if p.HasTerm() {
		like := "%" + strings.ToLower(p.Term) + "%"
		q = q.Where("lower(name) LIKE ? OR lower(email) LIKE ? OR lower(phone) LIKE ?", like, like, like)
	}

	switch p.Filter {
	case query.FilterRecent:
		start, end, _ := query.DateRange(query.FilterRecent, now)
		q = q.Where("created_at >= ? AND created_at < ?", start, end)
	case query.FilterMulti:
		q = q.Where("id IN (?)",
			r.db.Table("vehicles").Select("customer_id").Group("customer_id").Having("COUNT(*) >= ?", 2))
	}
	return q
}

// List 服务端分页：total 统计整库匹配数，排序 created_at DESC, id DESC。
func (r *Repo) List(ctx context.Context, p query.Params, now time.Time) (query.Result[Customer], error) {
	if r == nil || r.db == nil {
		return query.Result[Customer]{}, fmt.Errorf("repo db is nil")
	}
	q := r.buildQuery(ctx, p, now)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return query.Result[Customer]{}, err
	}

	offset, limit := p.Window()
	var items []Customer
	if err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return query.Result[Customer]{}, err
	}
	if items == nil {
		items = []Customer{}
	}
	return query.Result[Customer]{Items: items, Total: total}, nil
}

// Delete 仅删除客户本行；级联交给 Service 的事务。
func (r *Repo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := tx
	if db == nil {
		if r == nil || r.db == nil {
			return fmt.Errorf("repo db is nil")
		}
		db = r.db
	}
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&Customer{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *Repo) Count(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	var total int64
	err := r.db.WithContext(ctx).Model(&Customer{}).Count(&total).Error
	return total, err
}

// CountMultiVehicle 名下有两台及以上车辆的客户数。
func (r *Repo) CountMultiVehicle(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	var total int64
	err := r.db.WithContext(ctx).Model(&Customer{}).
		Where("id IN (?)",
			r.db.Table("vehicles").Select("customer_id").Group("customer_id").Having("COUNT(*) >= ?", 2)).
		Count(&total).Error
	return total, err
}
