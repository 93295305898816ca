package workorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GarageDesk/GarageDesk/internal/common/errs"
	"github.com/GarageDesk/GarageDesk/internal/customer"
	"github.com/GarageDesk/GarageDesk/internal/money"
	"github.com/GarageDesk/GarageDesk/internal/query"
	"github.com/GarageDesk/GarageDesk/internal/vehicle"
)

// Options 工单模块的业务参数，来自配置中心。
type Options struct {
	VATRateBasisPoints int64
	HighValueCents     int64
	QueryTimeout       time.Duration
}

func (o Options) withDefaults() Options {
	if o.VATRateBasisPoints <= 0 {
		o.VATRateBasisPoints = money.DefaultVATRateBasisPoints
	}
	if o.HighValueCents <= 0 {
		o.HighValueCents = 50000
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 10 * time.Second
	}
	return o
}

// Service 封装工单领域的核心用例（不依赖 HTTP），便于复用和测试。
type Service struct {
	repo      *Repo
	customers *customer.Repo
	vehicles  *vehicle.Repo
	opts      Options

	now func() time.Time
}

func NewService(repo *Repo, customers *customer.Repo, vehicles *vehicle.Repo, opts Options) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		vehicles:  vehicles,
		opts:      opts.withDefaults(),
		now:       time.Now,
	}
}

// CreateInput 新建 / 编辑工单的入参。
type CreateInput struct {
	CustomerID string
	VehicleID  string
	Date       time.Time
	Lines      []money.Line
	Notes      string
	Mileage    int64
}

// draft 把入参装入草稿并走完 draft -> valid 校验。
func (s *Service) draft(ctx context.Context, in CreateInput) (*Draft, error) {
	d := NewDraft()
	d.CustomerID = strings.TrimSpace(in.CustomerID)
	d.VehicleID = strings.TrimSpace(in.VehicleID)
	d.Date = in.Date
	d.Lines = in.Lines
	d.Notes = in.Notes
	d.Mileage = in.Mileage

	if err := d.Validate(); err != nil {
		return nil, err
	}

	// 外键提前校验，给出可读错误而不是落库时的约束冲突
	if _, err := s.customers.FindByID(ctx, d.CustomerID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Invalidf("customer %s not found", d.CustomerID)
		}
		return nil, err
	}
	v, err := s.vehicles.FindByID(ctx, d.VehicleID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Invalidf("vehicle %s not found", d.VehicleID)
		}
		return nil, err
	}
	if v.CustomerID != d.CustomerID {
		return nil, errs.Invalidf("vehicle %s does not belong to customer %s", d.VehicleID, d.CustomerID)
	}
	return d, nil
}

// Create 新建工单：草稿 -> 校验 -> 定稿 -> 落库。
func (s *Service) Create(ctx context.Context, in CreateInput) (*ServiceRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	d, err := s.draft(ctx, in)
	if err != nil {
		return nil, err
	}
	rec, err := d.Finalize(s.opts.VATRateBasisPoints, s.now())
	if err != nil {
		return nil, err
	}
	// 落库失败时草稿停留在 valid，错误原样带出
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	if err := d.MarkPersisted(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update 编辑工单：同样经由草稿定稿，保持金额派生的唯一路径。
func (s *Service) Update(ctx context.Context, id string, in CreateInput) (*ServiceRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	existing, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	d, err := s.draft(ctx, in)
	if err != nil {
		return nil, err
	}
	rec, err := d.Finalize(s.opts.VATRateBasisPoints, s.now())
	if err != nil {
		return nil, err
	}
	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	if err := d.MarkPersisted(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (*ServiceRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.GetByID(ctx, strings.TrimSpace(id))
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	return s.repo.Delete(ctx, strings.TrimSpace(id))
}

// Search 全集搜索。超时与取消分别归一化为 ErrTimeout / ErrSuperseded，
// 与“零行命中”严格区分。
func (s *Service) Search(ctx context.Context, p query.Params) (query.Result[SearchRow], error) {
	if s == nil || s.repo == nil {
		return query.Result[SearchRow]{}, fmt.Errorf("service not initialized")
	}
	p.Filter = query.ParseFilter(string(p.Filter), query.ServiceFilters)
	p = p.Normalize()

	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	res, err := s.repo.Search(ctx, p, s.now(), s.opts.HighValueCents)
	if err != nil {
		return query.Result[SearchRow]{}, errs.FromContext(ctx, err)
	}
	return res, nil
}

// RevenueSummary 当前搜索条件下的营收汇总。
type RevenueSummary struct {
	TotalCents   int64  `json:"total_cents"`
	Count        int64  `json:"count"`
	TotalDisplay string `json:"total_display"`
}

// Revenue 与 Search 同一谓词、不分页的营收汇总。
func (s *Service) Revenue(ctx context.Context, p query.Params) (RevenueSummary, error) {
	if s == nil || s.repo == nil {
		return RevenueSummary{}, fmt.Errorf("service not initialized")
	}
	p.Filter = query.ParseFilter(string(p.Filter), query.ServiceFilters)
	p = p.Normalize()

	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	total, count, err := s.repo.Revenue(ctx, p, s.now(), s.opts.HighValueCents)
	if err != nil {
		return RevenueSummary{}, errs.FromContext(ctx, err)
	}
	return RevenueSummary{
		TotalCents:   total,
		Count:        count,
		TotalDisplay: money.FormatEuro(total),
	}, nil
}

// VehicleHistory 某台车辆的维修履历。
func (s *Service) VehicleHistory(ctx context.Context, vehicleID string) ([]ServiceRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	recs, err := s.repo.HistoryByVehicle(ctx, strings.TrimSpace(vehicleID))
	if recs == nil {
		recs = []ServiceRecord{}
	}
	return recs, err
}

// CustomerHistory 某客户的维修履历。
func (s *Service) CustomerHistory(ctx context.Context, customerID string) ([]ServiceRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	recs, err := s.repo.HistoryByCustomer(ctx, strings.TrimSpace(customerID))
	if recs == nil {
		recs = []ServiceRecord{}
	}
	return recs, err
}
