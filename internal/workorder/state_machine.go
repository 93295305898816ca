package workorder

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GarageDesk/GarageDesk/internal/common/errs"
	"github.com/GarageDesk/GarageDesk/internal/money"
)

// State 工单草稿的状态枚举。
type State string

const (
	// StateDraft 编辑中，尚未通过校验
	StateDraft State = "draft"
	// StateValid 校验通过，可以定稿
	StateValid State = "valid"
	// StatePersisted 已定稿落库，终态
	StatePersisted State = "persisted"
)

// AllowTransition 定义草稿状态机的允许流转关系。
// 任何编辑都把草稿打回 draft，重新校验后才能再次定稿。
var AllowTransition = map[State][]State{
	StateDraft: {StateValid},
	StateValid: {StateDraft, StatePersisted},
	// 终态：落库后不再流转
	StatePersisted: {},
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Draft 工单草稿聚合。Finalize 是产出可落库记录的唯一路径。
type Draft struct {
	CustomerID string
	VehicleID  string
	Date       time.Time
	Lines      []money.Line
	Notes      string
	Mileage    int64

	state State
}

// NewDraft 新草稿从 draft 态开始。
func NewDraft() *Draft {
	return &Draft{state: StateDraft}
}

// State 当前状态。
func (d *Draft) State() State {
	if d == nil {
		return StateDraft
	}
	return d.state
}

// Edit 对草稿做任意修改前调用：把状态打回 draft。
func (d *Draft) Edit() {
	if d != nil && d.state == StateValid {
		d.state = StateDraft
	}
}

// descriptions 非空白的服务行描述，按输入顺序。
func (d *Draft) descriptions() []string {
	var out []string
	for _, l := range d.Lines {
		if s := strings.TrimSpace(l.Description); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate 校验草稿并尝试流转到 valid：
// 必须挂在某台车辆上，且至少有一条非空白描述的服务行。
func (d *Draft) Validate() error {
	if d == nil {
		return fmt.Errorf("draft is nil")
	}
	if d.state == StatePersisted {
		return errs.Invalidf("work order already persisted")
	}
	if strings.TrimSpace(d.CustomerID) == "" {
		return errs.Invalidf("work order requires a customer")
	}
	if strings.TrimSpace(d.VehicleID) == "" {
		return errs.Invalidf("work order requires a vehicle")
	}
	if len(d.descriptions()) == 0 {
		return errs.Invalidf("work order requires at least one service line with a description")
	}
	if len(d.Notes) > 500 {
		return errs.Invalidf("work order notes exceed 500 characters")
	}
	if !CanTransition(d.state, StateValid) {
		return errs.Invalidf("invalid work order state transition: %s -> %s", d.state, StateValid)
	}
	d.state = StateValid
	return nil
}

// summaryLimit 摘要列的最大长度（按字符计）。
const summaryLimit = 255

// BuildSummary 摘要 = 各行描述用 " | " 拼接，超长截断，没有描述时回落到 "Service"。
func BuildSummary(descriptions []string) string {
	s := strings.Join(descriptions, " | ")
	if strings.TrimSpace(s) == "" {
		return "Service"
	}
	if runes := []rune(s); len(runes) > summaryLimit {
		return string(runes[:summaryLimit])
	}
	return s
}

// MarkPersisted 落库成功后调用，进入终态。落库失败时不调用，
// 草稿停留在 valid，可以直接重试。
func (d *Draft) MarkPersisted() error {
	if d == nil {
		return fmt.Errorf("draft is nil")
	}
	if !CanTransition(d.state, StatePersisted) {
		return errs.Invalidf("invalid work order state transition: %s -> %s", d.state, StatePersisted)
	}
	d.state = StatePersisted
	return nil
}

// Finalize 定稿：唯一能产出可落库 ServiceRecord 的工厂。
// 只有 valid 态的草稿可以定稿；金额三元组在此一次性派生。
// 状态不在这里推进：落库成功后由调用方 MarkPersisted。
func (d *Draft) Finalize(vatRateBasisPoints int64, now time.Time) (*ServiceRecord, error) {
	if d == nil {
		return nil, fmt.Errorf("draft is nil")
	}
	if d.state != StateValid {
		return nil, errs.Invalidf("cannot finalize work order in state %q", d.state)
	}

	if vatRateBasisPoints <= 0 {
		vatRateBasisPoints = money.DefaultVATRateBasisPoints
	}
	amounts := money.Compute(d.Lines, vatRateBasisPoints)
	date := d.Date
	if date.IsZero() {
		date = now
	}

	rec := &ServiceRecord{
		ID:         uuid.NewString(),
		CustomerID: strings.TrimSpace(d.CustomerID),
		VehicleID:  strings.TrimSpace(d.VehicleID),
		Date:       date,
		Summary:    BuildSummary(d.descriptions()),
		Lines:      Lines(d.Lines),
		Notes:      strings.TrimSpace(d.Notes),
		Mileage:    d.Mileage,

		SubtotalCents:      amounts.SubtotalCents,
		VATCents:           amounts.VATCents,
		TotalCents:         amounts.TotalCents,
		VATRateBasisPoints: vatRateBasisPoints,
	}
	return rec, nil
}
