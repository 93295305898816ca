package workorder

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

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

func (r *Repo) Create(ctx context.Context, rec *ServiceRecord) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(rec).Error
}

func (r *Repo) Update(ctx context.Context, rec *ServiceRecord) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(rec).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*ServiceRecord, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var rec ServiceRecord
	if err := db.Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Where("id = ?", id).Delete(&ServiceRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// PurgeByCustomer 级联：删除客户时清空其历史工单。
func (r *Repo) PurgeByCustomer(ctx context.Context, tx *gorm.DB, customerID string) error {
	db := tx
	if db == nil {
		if r == nil || r.db == nil {
			return fmt.Errorf("repo db is nil")
		}
		db = r.db
	}
	return db.WithContext(ctx).Where("customer_id = ?", customerID).Delete(&ServiceRecord{}).Error
}

// PurgeByVehicle 级联：车辆独占其工单，删除车辆时一并清空其历史工单，
// 避免留下报表可见、列表不可见的孤儿记录。
func (r *Repo) PurgeByVehicle(ctx context.Context, tx *gorm.DB, vehicleID string) error {
	db := tx
	if db == nil {
		if r == nil || r.db == nil {
			return fmt.Errorf("repo db is nil")
		}
		db = r.db
	}
	return db.WithContext(ctx).Where("vehicle_id = ?", vehicleID).Delete(&ServiceRecord{}).Error
}

// SearchRow 搜索结果行：记录本体 + 展示所需的客户/车辆字段 + 命中字段标注。
type SearchRow struct {
	ServiceRecord

	CustomerName string `json:"customer_name"`
	VehicleMake  string `json:"vehicle_make"`
	VehicleModel string `json:"vehicle_model"`
	LicensePlate string `json:"license_plate"`

	// MatchField 搜索词命中的字段（customer / vehicle / license_plate / description），
	// 无搜索词时为空。由 Go 侧计算，不落库。
	MatchField string `gorm:"-" json:"match_field,omitempty"`
}

const searchSelect = "service_records.*, " +
	"customers.name AS customer_name, " +
	"vehicles.make AS vehicle_make, vehicles.model AS vehicle_model, " +
	"vehicles.license_plate AS license_plate"

// buildSearch 搜索 + 过滤的统一谓词。列表查询与营收汇总共用，
// 保证两边看到的是同一个全集。
func (r *Repo) buildSearch(ctx context.Context, p query.Params, now time.Time, highValueCents int64) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&ServiceRecord{}).
		Joins("JOIN customers ON customers.id = service_records.customer_id").
		Joins("JOIN vehicles ON vehicles.id = service_records.vehicle_id")

	if p.HasTerm() {
		like := "%" + strings.ToLower(p.Term) + "%"
		switch p.Field {
		case query.FieldCustomer:
			q = q.Where("lower(customers.name) LIKE ?", like)
		case query.FieldVehicle:
			q = q.Where("lower(vehicles.make) LIKE ? OR lower(vehicles.model) LIKE ?", like, like)
		case query.FieldLicensePlate:
			q = q.Where("lower(vehicles.license_plate) LIKE ?", like)
		case query.FieldDescription:
			q = q.Where("lower(service_records.summary) LIKE ? OR lower(service_records.notes) LIKE ?", like, like)
		default:
			q = q.Where(
				"lower(customers.name) LIKE ? OR lower(vehicles.make) LIKE ? OR lower(vehicles.model) LIKE ? OR lower(vehicles.license_plate) LIKE ? OR lower(service_records.summary) LIKE ? OR lower(service_records.notes) LIKE ?",
				like, like, like, like, like, like)
		}
	}

	switch p.Filter {
	case query.FilterToday, query.FilterWeek, query.FilterMonth:
		start, end, _ := query.DateRange(p.Filter, now)
		q = q.Where("service_records.date >= ? AND service_records.date < ?", start, end)
	case query.FilterHighValue:
		q = q.Where("service_records.total_cents >= ?", highValueCents)
	}
	return q
}

// Search 服务端分页的全集搜索。total 统计整库匹配数，
// 排序 date DESC, id DESC（同日内的稳定次序）。
func (r *Repo) Search(ctx context.Context, p query.Params, now time.Time, highValueCents int64) (query.Result[SearchRow], error) {
	if r == nil || r.db == nil {
		return query.Result[SearchRow]{}, fmt.Errorf("repo db is nil")
	}
	q := r.buildSearch(ctx, p, now, highValueCents)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return query.Result[SearchRow]{}, err
	}

	offset, limit := p.Window()
	var rows []SearchRow
	err := q.Select(searchSelect).
		Order("service_records.date DESC, service_records.id DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	if err != nil {
		return query.Result[SearchRow]{}, err
	}
	if rows == nil {
		rows = []SearchRow{}
	}
	for i := range rows {
		rows[i].MatchField = matchField(&rows[i], p)
	}
	return query.Result[SearchRow]{Items: rows, Total: total}, nil
}

// matchField 计算命中字段标注。限定字段搜索时直接标注该字段；
// 全字段搜索按 customer -> vehicle -> license_plate -> description 的优先级判定。
func matchField(row *SearchRow, p query.Params) string {
	if !p.HasTerm() {
		return ""
	}
	if p.Field != query.FieldAll {
		return string(p.Field)
	}
	term := strings.ToLower(strings.TrimSpace(p.Term))
	contains := func(s string) bool { return strings.Contains(strings.ToLower(s), term) }
	switch {
	case contains(row.CustomerName):
		return string(query.FieldCustomer)
	case contains(row.VehicleMake) || contains(row.VehicleModel):
		return string(query.FieldVehicle)
	case contains(row.LicensePlate):
		return string(query.FieldLicensePlate)
	default:
		return string(query.FieldDescription)
	}
}

// Revenue 与 Search 同一谓词的不分页营收汇总。
func (r *Repo) Revenue(ctx context.Context, p query.Params, now time.Time, highValueCents int64) (totalCents int64, count int64, err error) {
	if r == nil || r.db == nil {
		return 0, 0, fmt.Errorf("repo db is nil")
	}
	q := r.buildSearch(ctx, p, now, highValueCents)

	if err = q.Count(&count).Error; err != nil {
		return 0, 0, err
	}
	var sum struct{ Total int64 }
	if err = q.Select("COALESCE(SUM(service_records.total_cents), 0) AS total").Scan(&sum).Error; err != nil {
		return 0, 0, err
	}
	return sum.Total, count, nil
}

// SumBetween 某半开日期区间内的营收与单数，供报表使用。
func (r *Repo) SumBetween(ctx context.Context, start, end time.Time) (totalCents int64, count int64, err error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, 0, fmt.Errorf("repo db is nil")
	}
	q := db.Model(&ServiceRecord{}).Where("date >= ? AND date < ?", start, end)
	if err = q.Count(&count).Error; err != nil {
		return 0, 0, err
	}
	var sum struct{ Total int64 }
	if err = q.Select("COALESCE(SUM(total_cents), 0) AS total").Scan(&sum).Error; err != nil {
		return 0, 0, err
	}
	return sum.Total, count, nil
}

// HistoryByVehicle 某台车辆的全部工单，按日期倒序。
func (r *Repo) HistoryByVehicle(ctx context.Context, vehicleID string) ([]ServiceRecord, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var recs []ServiceRecord
	err := db.Where("vehicle_id = ?", vehicleID).
		Order("date DESC, id DESC").
		Find(&recs).Error
	return recs, err
}

// HistoryByCustomer 某客户的全部工单，按日期倒序。
func (r *Repo) HistoryByCustomer(ctx context.Context, customerID string) ([]ServiceRecord, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var recs []ServiceRecord
	err := db.Where("customer_id = ?", customerID).
		Order("date DESC, id DESC").
		Find(&recs).Error
	return recs, err
}
