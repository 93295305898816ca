// Package query 定义列表视图共用的搜索/过滤/分页协议。
//
// 搜索与过滤先于分页在全量数据上执行，total 统计的是整库匹配数，
// 不是当前页行数。日期窗口一律在 Go 侧按本地时钟算好，以半开区间
// [start, end) 传给 SQL，避免依赖具体方言的日期函数。
package query

import (
	"strings"
	"time"
)

// SearchField 搜索字段范围。
type SearchField string

const (
	FieldAll          SearchField = "all"
	FieldCustomer     SearchField = "customer"
	FieldVehicle      SearchField = "vehicle"
	FieldLicensePlate SearchField = "license_plate"
	FieldDescription  SearchField = "description"
)

// ParseSearchField 未知取值回落到 all。
func ParseSearchField(s string) SearchField {
	switch SearchField(strings.ToLower(strings.TrimSpace(s))) {
	case FieldCustomer:
		return FieldCustomer
	case FieldVehicle:
		return FieldVehicle
	case FieldLicensePlate:
		return FieldLicensePlate
	case FieldDescription:
		return FieldDescription
	default:
		return FieldAll
	}
}

// Filter 过滤器。工单视图与客户视图各自允许一个子集。
type Filter string

const (
	FilterAll       Filter = "all"
	FilterToday     Filter = "today"
	FilterWeek      Filter = "week"
	FilterMonth     Filter = "month"
	FilterHighValue Filter = "high-value"
	FilterRecent    Filter = "recent"
	FilterMulti     Filter = "multi-vehicle"
)

// ServiceFilters 工单列表允许的过滤器。
var ServiceFilters = []Filter{FilterAll, FilterToday, FilterWeek, FilterMonth, FilterHighValue}

// CustomerFilters 客户列表允许的过滤器。
var CustomerFilters = []Filter{FilterAll, FilterRecent, FilterMulti}

// ParseFilter 仅接受 allowed 中的取值，其余回落到 all。
func ParseFilter(s string, allowed []Filter) Filter {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range allowed {
		if f == a {
			return f
		}
	}
	return FilterAll
}

// pageSizes 允许的每页条数。
var pageSizes = map[int]bool{25: true, 50: true, 100: true, 250: true, 500: true}

// DefaultPageSize 默认每页条数。
const DefaultPageSize = 50

// Params 一次列表查询的全部输入。
type Params struct {
	Term     string
	Field    SearchField
	Filter   Filter
	Page     int
	PageSize int
}

// Normalize 归一化：term 去空白、page ≥ 1、pageSize 限定在允许集合内。
// filter/field 由各视图先行 Parse。
func (p Params) Normalize() Params {
	p.Term = strings.TrimSpace(p.Term)
	if p.Field == "" {
		p.Field = FieldAll
	}
	if p.Filter == "" {
		p.Filter = FilterAll
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if !pageSizes[p.PageSize] {
		p.PageSize = DefaultPageSize
	}
	return p
}

// Window 分页窗口：offset = (page-1) × pageSize。
func (p Params) Window() (offset, limit int) {
	return (p.Page - 1) * p.PageSize, p.PageSize
}

// HasTerm 是否携带搜索词。
func (p Params) HasTerm() bool {
	return strings.TrimSpace(p.Term) != ""
}

// DateRange 过滤器对应的日期半开区间 [start, end)。
// 返回 ok=false 表示该过滤器不是日期类过滤器。
func DateRange(f Filter, now time.Time) (start, end time.Time, ok bool) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch f {
	case FilterToday:
		return dayStart, dayStart.AddDate(0, 0, 1), true
	case FilterWeek:
		// 周从周日起算（与来源系统保持一致）
		weekStart := dayStart.AddDate(0, 0, -int(now.Weekday()))
		return weekStart, weekStart.AddDate(0, 0, 7), true
	case FilterMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return monthStart, monthStart.AddDate(0, 1, 0), true
	case FilterRecent:
		// 最近 30 天
		return dayStart.AddDate(0, 0, -30), dayStart.AddDate(0, 0, 1), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// Result 一页查询结果。
type Result[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

// TotalPages 按当前 pageSize 计算总页数。
func (r Result[T]) TotalPages(pageSize int) int64 {
	if pageSize <= 0 {
		return 0
	}
	return (r.Total + int64(pageSize) - 1) / int64(pageSize)
}
