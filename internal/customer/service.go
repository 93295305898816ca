package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GarageDesk/GarageDesk/internal/query"
	"github.com/GarageDesk/GarageDesk/internal/vehicle"
)

// RecordPurger 级联删除时清理历史工单（由工单仓储实现）。
// 车辆独占其工单：车或车主没了，工单也随之清除。
type RecordPurger interface {
	PurgeByCustomer(ctx context.Context, tx *gorm.DB, customerID string) error
	PurgeByVehicle(ctx context.Context, tx *gorm.DB, vehicleID string) error
}

// Service 封装客户领域的核心用例（不依赖 HTTP），便于复用和测试。
type Service struct {
	repo     *Repo
	vehicles *vehicle.Repo
	records  RecordPurger

	now func() time.Time
}

func NewService(repo *Repo, vehicles *vehicle.Repo, records RecordPurger) *Service {
	return &Service{repo: repo, vehicles: vehicles, records: records, now: time.Now}
}

// CreateInput 新建 / 编辑客户的入参。UserID 是建档人，
// 仅在新建时写入，编辑不改归属。
type CreateInput struct {
	UserID  string
	Name    string
	Email   string
	Phone   string
	Address string
	Notes   string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Customer, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	c := &Customer{
		ID:      uuid.NewString(),
		UserID:  strings.TrimSpace(in.UserID),
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
		Notes:   strings.TrimSpace(in.Notes),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id string, in CreateInput) (*Customer, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	c, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Email = strings.TrimSpace(in.Email)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Address = strings.TrimSpace(in.Address)
	c.Notes = strings.TrimSpace(in.Notes)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Detail 客户详情 = 客户本体 + 名下车辆。
type Detail struct {
	Customer Customer          `json:"customer"`
	Vehicles []vehicle.Vehicle `json:"vehicles"`
}

func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	c, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	vs, err := s.vehicles.ListByCustomer(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if vs == nil {
		vs = []vehicle.Vehicle{}
	}
	return &Detail{Customer: *c, Vehicles: vs}, nil
}

func (s *Service) List(ctx context.Context, p query.Params) (query.Result[Customer], error) {
	if s == nil || s.repo == nil {
		return query.Result[Customer]{}, fmt.Errorf("service not initialized")
	}
	p.Filter = query.ParseFilter(string(p.Filter), query.CustomerFilters)
	p = p.Normalize()
	return s.repo.List(ctx, p, s.now())
}

// Delete 删除客户，同一事务内级联删除名下车辆与历史工单。
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.repo == nil || s.repo.db == nil {
		return fmt.Errorf("service not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("id required")
	}
	return s.repo.db.Transaction(func(tx *gorm.DB) error {
		if s.records != nil {
			if err := s.records.PurgeByCustomer(ctx, tx, id); err != nil {
				return err
			}
		}
		if err := s.vehicles.DeleteByCustomer(ctx, tx, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, id)
	})
}

// AddVehicle 在客户名下登记一台车辆。
func (s *Service) AddVehicle(ctx context.Context, customerID string, v vehicle.Vehicle) (*vehicle.Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if _, err := s.repo.FindByID(ctx, strings.TrimSpace(customerID)); err != nil {
		return nil, err
	}
	v.ID = uuid.NewString()
	v.CustomerID = strings.TrimSpace(customerID)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := s.vehicles.Upsert(ctx, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Stats 客户总览：总客户数 / 总车辆数 / 多车客户数 / 户均车辆数。
type Stats struct {
	Customers           int64   `json:"customers"`
	Vehicles            int64   `json:"vehicles"`
	MultiVehicle        int64   `json:"multi_vehicle"`
	VehiclesPerCustomer float64 `json:"vehicles_per_customer"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if s == nil || s.repo == nil || s.vehicles == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	customers, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	vehicles, err := s.vehicles.Count(ctx)
	if err != nil {
		return nil, err
	}
	multi, err := s.repo.CountMultiVehicle(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{Customers: customers, Vehicles: vehicles, MultiVehicle: multi}
	if customers > 0 {
		st.VehiclesPerCustomer = float64(vehicles) / float64(customers)
	}
	return st, nil
}

// RemoveVehicle 删除车辆，同一事务内级联清除该车的全部工单。
func (s *Service) RemoveVehicle(ctx context.Context, vehicleID string) error {
	if s == nil || s.vehicles == nil || s.repo == nil || s.repo.db == nil {
		return fmt.Errorf("service not initialized")
	}
	vehicleID = strings.TrimSpace(vehicleID)
	if vehicleID == "" {
		return fmt.Errorf("id required")
	}
	return s.repo.db.Transaction(func(tx *gorm.DB) error {
		if s.records != nil {
			if err := s.records.PurgeByVehicle(ctx, tx, vehicleID); err != nil {
				return err
			}
		}
		return s.vehicles.Delete(ctx, tx, vehicleID)
	})
}
