package customer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GarageDesk/GarageDesk/internal/common/errs"
	"github.com/GarageDesk/GarageDesk/internal/query"
	"github.com/GarageDesk/GarageDesk/internal/vehicle"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Customer{}, &vehicle.Vehicle{}))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := newTestDB(t)
	return NewService(NewRepo(db), vehicle.NewRepo(db), nil), db
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateInput{Name: "  Γιώργος Παπαδόπουλος ", Phone: "6971234567"})
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)
	require.Equal(t, "Γιώργος Παπαδόπουλος", c.Name)

	d, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, d.Customer.ID)
	require.Empty(t, d.Vehicles)
}

func TestCreateRecordsOwningUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateInput{Name: "Ηλίας", UserID: " staff-1 "})
	require.NoError(t, err)
	require.Equal(t, "staff-1", c.UserID)

	// 编辑不改归属
	upd, err := svc.Update(ctx, c.ID, CreateInput{Name: "Ηλίας Β'"})
	require.NoError(t, err)
	require.Equal(t, "staff-1", upd.UserID)
}

func TestCreateRequiresName(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), CreateInput{Name: "   "})
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestListSearchAndPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	names := []string{"Μαρία Ιωάννου", "Νίκος Ιωάννου", "Κώστας Δήμου"}
	for _, n := range names {
		_, err := svc.Create(ctx, CreateInput{Name: n})
		require.NoError(t, err)
	}

	// 搜索先于分页作用于全集
	res, err := svc.List(ctx, query.Params{Term: "ιωάννου", Page: 1, PageSize: 25})
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Total)
	require.Len(t, res.Items, 2)

	// total 是整库匹配数，不是当前页行数
	res, err = svc.List(ctx, query.Params{Page: 2, PageSize: 25})
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Total)
	require.Empty(t, res.Items)
}

func TestListMultiVehicleFilter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	one, err := svc.Create(ctx, CreateInput{Name: "Ελένη Μία"})
	require.NoError(t, err)
	two, err := svc.Create(ctx, CreateInput{Name: "Ανδρέας Δύο"})
	require.NoError(t, err)

	_, err = svc.AddVehicle(ctx, one.ID, vehicle.Vehicle{Make: "Toyota", Model: "Yaris"})
	require.NoError(t, err)
	_, err = svc.AddVehicle(ctx, two.ID, vehicle.Vehicle{Make: "Fiat", Model: "Panda"})
	require.NoError(t, err)
	_, err = svc.AddVehicle(ctx, two.ID, vehicle.Vehicle{Make: "VW", Model: "Golf"})
	require.NoError(t, err)

	res, err := svc.List(ctx, query.Params{Filter: query.FilterMulti})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	require.Equal(t, two.ID, res.Items[0].ID)
}

func TestUnknownFilterFallsBackToAll(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateInput{Name: "Σπύρος"})
	require.NoError(t, err)

	// high-value 属于工单视图：客户视图回落到 all
	res, err := svc.List(ctx, query.Params{Filter: query.FilterHighValue})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	one, err := svc.Create(ctx, CreateInput{Name: "Μονός"})
	require.NoError(t, err)
	two, err := svc.Create(ctx, CreateInput{Name: "Διπλός"})
	require.NoError(t, err)

	_, err = svc.AddVehicle(ctx, one.ID, vehicle.Vehicle{Make: "Seat", Model: "Ibiza"})
	require.NoError(t, err)
	_, err = svc.AddVehicle(ctx, two.ID, vehicle.Vehicle{Make: "Audi", Model: "A3"})
	require.NoError(t, err)
	_, err = svc.AddVehicle(ctx, two.ID, vehicle.Vehicle{Make: "Skoda", Model: "Fabia"})
	require.NoError(t, err)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, st.Customers)
	require.EqualValues(t, 3, st.Vehicles)
	require.EqualValues(t, 1, st.MultiVehicle)
	require.InDelta(t, 1.5, st.VehiclesPerCustomer, 0.001)
}

func TestDeleteCascadesVehicles(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateInput{Name: "Δημήτρης"})
	require.NoError(t, err)
	_, err = svc.AddVehicle(ctx, c.ID, vehicle.Vehicle{Make: "Opel", Model: "Corsa"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, c.ID))

	_, err = svc.Get(ctx, c.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	var left int64
	require.NoError(t, db.Model(&vehicle.Vehicle{}).Where("customer_id = ?", c.ID).Count(&left).Error)
	require.Zero(t, left)
}

// purgeLog 记录级联清理调用的 RecordPurger 测试替身。
type purgeLog struct {
	customers []string
	vehicles  []string
}

func (p *purgeLog) PurgeByCustomer(ctx context.Context, tx *gorm.DB, id string) error {
	p.customers = append(p.customers, id)
	return nil
}

func (p *purgeLog) PurgeByVehicle(ctx context.Context, tx *gorm.DB, id string) error {
	p.vehicles = append(p.vehicles, id)
	return nil
}

func TestRemoveVehiclePurgesRecords(t *testing.T) {
	db := newTestDB(t)
	purged := &purgeLog{}
	svc := NewService(NewRepo(db), vehicle.NewRepo(db), purged)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateInput{Name: "Στέλιος"})
	require.NoError(t, err)
	v, err := svc.AddVehicle(ctx, c.ID, vehicle.Vehicle{Make: "Honda", Model: "Civic"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveVehicle(ctx, v.ID))
	require.Equal(t, []string{v.ID}, purged.vehicles)

	var left int64
	require.NoError(t, db.Model(&vehicle.Vehicle{}).Where("id = ?", v.ID).Count(&left).Error)
	require.Zero(t, left)
}

func TestDeleteMissingCustomer(t *testing.T) {
	svc, _ := newTestService(t)
	require.ErrorIs(t, svc.Delete(context.Background(), "no-such-id"), errs.ErrNotFound)
}

func TestRecentFilterUsesCreationWindow(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	fresh, err := svc.Create(ctx, CreateInput{Name: "Νέος Πελάτης"})
	require.NoError(t, err)
	stale, err := svc.Create(ctx, CreateInput{Name: "Παλιός Πελάτης"})
	require.NoError(t, err)

	old := time.Now().AddDate(0, 0, -90)
	require.NoError(t, db.Model(&Customer{}).Where("id = ?", stale.ID).Update("created_at", old).Error)

	res, err := svc.List(ctx, query.Params{Filter: query.FilterRecent})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	require.Equal(t, fresh.ID, res.Items[0].ID)
}
