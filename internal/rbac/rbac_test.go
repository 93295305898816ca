package rbac

import "testing"

func TestResolveTruthTable(t *testing.T) {
	cases := []struct {
		role Role
		want Permissions
	}{
		{
			role: RoleAdmin,
			want: Permissions{
				CanViewDashboard: true, CanViewCustomers: true, CanViewServices: true,
				CanViewFinancials: true, CanManageUsers: true,
				CanEditCustomers: true, CanEditServices: true,
				Role: RoleAdmin,
			},
		},
		{
			role: RoleMechanic,
			want: Permissions{
				CanViewDashboard: true, CanViewCustomers: true, CanViewServices: true,
				Role: RoleMechanic,
			},
		},
		{
			role: RoleSecretary,
			want: Permissions{
				CanViewDashboard: true, CanViewCustomers: true, CanViewServices: true,
				Role: RoleSecretary,
			},
		},
		{
			role: RoleNone,
			want: Permissions{Role: RoleNone},
		},
	}

	for _, tc := range cases {
		got := Resolve(tc.role)
		if got != tc.want {
			t.Fatalf("Resolve(%q) = %+v, want %+v", tc.role, got, tc.want)
		}
	}
}

func TestResolveUnknownRoleIsLeastPrivileged(t *testing.T) {
	// 未知角色必须落到全 false，不允许部分放行
	got := Resolve(Role("superuser"))
	if got != (Permissions{Role: RoleNone}) {
		t.Fatalf("unknown role should resolve to least privilege, got %+v", got)
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"admin":     RoleAdmin,
		"  Admin  ": RoleAdmin,
		"MECHANIC":  RoleMechanic,
		"secretary": RoleSecretary,
		"":          RoleNone,
		"root":      RoleNone,
		"superuser": RoleNone,
	}
	for in, want := range cases {
		if got := ParseRole(in); got != want {
			t.Fatalf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}
}
