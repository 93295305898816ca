// Package report 营收报表：周 / 月 / 年汇总与近 12 个月的逐月拆分。
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/GarageDesk/GarageDesk/internal/money"
	"github.com/GarageDesk/GarageDesk/internal/query"
	"github.com/GarageDesk/GarageDesk/internal/workorder"
)

// Bucket 一个统计区段的营收。
type Bucket struct {
	Label        string `json:"label"`
	TotalCents   int64  `json:"total_cents"`
	Count        int64  `json:"count"`
	TotalDisplay string `json:"total_display"`
}

// Summary 周 / 月 / 年三个窗口的营收一览。
type Summary struct {
	Week  Bucket `json:"week"`
	Month Bucket `json:"month"`
	Year  Bucket `json:"year"`
}

// Service 报表用例。只读聚合，直接复用工单仓储的区间汇总。
type Service struct {
	records *workorder.Repo
	now     func() time.Time
}

func NewService(records *workorder.Repo) *Service {
	return &Service{records: records, now: time.Now}
}

func (s *Service) bucket(ctx context.Context, label string, start, end time.Time) (Bucket, error) {
	total, count, err := s.records.SumBetween(ctx, start, end)
	if err != nil {
		return Bucket{}, err
	}
	return Bucket{
		Label:        label,
		TotalCents:   total,
		Count:        count,
		TotalDisplay: money.FormatEuro(total),
	}, nil
}

// Summary 本周 / 本月 / 今年的营收汇总。
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	if s == nil || s.records == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	now := s.now()

	weekStart, weekEnd, _ := query.DateRange(query.FilterWeek, now)
	week, err := s.bucket(ctx, "week", weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	monthStart, monthEnd, _ := query.DateRange(query.FilterMonth, now)
	month, err := s.bucket(ctx, "month", monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	year, err := s.bucket(ctx, "year", yearStart, yearStart.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}

	return &Summary{Week: week, Month: month, Year: year}, nil
}

// MonthlyBreakdown 近 12 个月（含当月）的逐月营收，按时间正序。
func (s *Service) MonthlyBreakdown(ctx context.Context) ([]Bucket, error) {
	if s == nil || s.records == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	now := s.now()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	buckets := make([]Bucket, 0, 12)
	for i := 11; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)
		b, err := s.bucket(ctx, start.Format("2006-01"), start, end)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}
