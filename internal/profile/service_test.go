package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GarageDesk/GarageDesk/internal/common/config"
	"github.com/GarageDesk/GarageDesk/internal/common/errs"
	"github.com/GarageDesk/GarageDesk/internal/rbac"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}))

	authCfg := config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "garagedesk",
		Audience:  "garagedesk-api",
		TokenTTL:  config.Duration(time.Hour),
	}
	return NewService(NewRepo(db), authCfg, Options{}, nil), db
}

func register(t *testing.T, svc *Service, username, role string) *User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Username: username,
		Password: "correct-horse",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	u := register(t, svc, "Maria", "secretary")
	require.Equal(t, "maria", u.Username)
	require.Equal(t, "secretary", u.Role)

	res, err := svc.Login(context.Background(), "MARIA", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.True(t, res.Permissions.CanViewCustomers)
	require.False(t, res.Permissions.CanViewFinancials)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "maria", "secretary")

	_, err := svc.Login(context.Background(), "maria", "wrong-password")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	// 用户不存在与密码错误返回同一个错误
	_, err = svc.Login(context.Background(), "nobody", "whatever")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestSelfRegisterHasNoRole(t *testing.T) {
	svc, _ := newTestService(t)
	u, err := svc.SelfRegister(context.Background(), RegisterInput{
		Username: "newcomer", Password: "long-enough",
	})
	require.NoError(t, err)
	require.Equal(t, "", u.Role)

	// 未分配角色的账号可以登录，但没有任何能力
	res, err := svc.Login(context.Background(), "newcomer", "long-enough")
	require.NoError(t, err)
	require.Equal(t, rbac.RoleNone, res.Permissions.Role)
	require.False(t, res.Permissions.CanViewDashboard)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "x", Password: "long-enough", Role: "superuser",
	})
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestRoleForResolvesAndCaches(t *testing.T) {
	svc, db := newTestService(t)
	u := register(t, svc, "mechanic1", "mechanic")

	require.Equal(t, rbac.RoleMechanic, svc.RoleFor(context.Background(), u.ID))

	// 资料库故障：落到最后已知角色，而不是无角色
	require.NoError(t, db.Migrator().DropTable(&User{}))
	require.Equal(t, rbac.RoleMechanic, svc.RoleFor(context.Background(), u.ID))

	// 从未成功读到过的用户：读不到就是无角色
	require.Equal(t, rbac.RoleNone, svc.RoleFor(context.Background(), "never-seen"))
}

func TestRoleForUnknownUserIsNone(t *testing.T) {
	svc, _ := newTestService(t)
	require.Equal(t, rbac.RoleNone, svc.RoleFor(context.Background(), "no-such-user"))
	require.Equal(t, rbac.RoleNone, svc.RoleFor(context.Background(), ""))
}

func TestRoleForDeletedUserDropsCache(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "admin1", "admin")
	u := register(t, svc, "temp", "mechanic")

	require.Equal(t, rbac.RoleMechanic, svc.RoleFor(context.Background(), u.ID))
	require.NoError(t, svc.Delete(context.Background(), u.ID))

	// 账号已删除：缓存同步清掉，不得继续放行
	require.Equal(t, rbac.RoleNone, svc.RoleFor(context.Background(), u.ID))
}

func TestUpdateRoleGuardsLastAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	admin := register(t, svc, "admin1", "admin")

	_, err := svc.UpdateRole(context.Background(), admin.ID, "mechanic")
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	require.ErrorIs(t, svc.Delete(context.Background(), admin.ID), errs.ErrInvalidInput)

	register(t, svc, "admin2", "admin")
	u, err := svc.UpdateRole(context.Background(), admin.ID, "secretary")
	require.NoError(t, err)
	require.Equal(t, "secretary", u.Role)
	require.Equal(t, rbac.RoleSecretary, svc.RoleFor(context.Background(), admin.ID))
}

func TestUpdateRoleRejectsUnknownRole(t *testing.T) {
	svc, _ := newTestService(t)
	u := register(t, svc, "someone", "mechanic")
	_, err := svc.UpdateRole(context.Background(), u.ID, "root")
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestPasswordRoundtrip(t *testing.T) {
	salt, err := GenerateSaltHex()
	require.NoError(t, err)
	hash, err := HashPassword("s3cret-pass", salt)
	require.NoError(t, err)
	require.True(t, VerifyPassword("s3cret-pass", salt, hash))
	require.False(t, VerifyPassword("other", salt, hash))
}
