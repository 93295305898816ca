// Package rbac 实现角色到能力集的解析。
//
// 角色是封闭枚举：admin / mechanic / secretary。角色是能力解析的唯一输入，
// 不存在按资源的 ACL。未知或缺失的角色一律归一化为 RoleNone（最小权限），
// 不会回退到任何放行的默认值。
package rbac

import "strings"

// Role 用户角色（持久化为字符串）。
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleMechanic  Role = "mechanic"
	RoleSecretary Role = "secretary"
	// RoleNone 无角色（未登录 / 资料未加载 / 角色非法）。
	RoleNone Role = ""
)

// ParseRole 将外部输入归一化为封闭枚举。
// 未知值归一化为 RoleNone，而不是原样透传。
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleMechanic:
		return RoleMechanic
	case RoleSecretary:
		return RoleSecretary
	default:
		return RoleNone
	}
}

// Valid 判断角色是否属于三个已知角色之一。
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMechanic, RoleSecretary:
		return true
	default:
		return false
	}
}

// Permissions 七个能力开关 + 解析来源角色。
// 整个结构由 Resolve 一次性算出，七个开关永远一起解析，不存在部分有效的状态。
type Permissions struct {
	CanViewDashboard  bool `json:"can_view_dashboard"`
	CanViewCustomers  bool `json:"can_view_customers"`
	CanViewServices   bool `json:"can_view_services"`
	CanViewFinancials bool `json:"can_view_financials"`
	CanManageUsers    bool `json:"can_manage_users"`
	CanEditCustomers  bool `json:"can_edit_customers"`
	CanEditServices   bool `json:"can_edit_services"`

	Role Role `json:"role"`
}

// Resolve 角色 -> 能力集，纯函数。
//
// 能力矩阵：
//
//	                   admin  mechanic  secretary  none
//	canViewDashboard     ✓       ✓         ✓        ✗
//	canViewCustomers     ✓       ✓         ✓        ✗
//	canViewServices      ✓       ✓         ✓        ✗
//	canViewFinancials    ✓       ✗         ✗        ✗
//	canManageUsers       ✓       ✗         ✗        ✗
//	canEditCustomers     ✓       ✗         ✗        ✗
//	canEditServices      ✓       ✗         ✗        ✗
func Resolve(role Role) Permissions {
	switch role {
	case RoleAdmin:
		return Permissions{
			CanViewDashboard:  true,
			CanViewCustomers:  true,
			CanViewServices:   true,
			CanViewFinancials: true,
			CanManageUsers:    true,
			CanEditCustomers:  true,
			CanEditServices:   true,
			Role:              RoleAdmin,
		}
	case RoleMechanic, RoleSecretary:
		return Permissions{
			CanViewDashboard: true,
			CanViewCustomers: true,
			CanViewServices:  true,
			Role:             role,
		}
	default:
		// 无角色 / 未知角色：最小权限
		return Permissions{Role: RoleNone}
	}
}
