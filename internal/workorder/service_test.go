package workorder

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GarageDesk/GarageDesk/internal/common/errs"
	"github.com/GarageDesk/GarageDesk/internal/customer"
	"github.com/GarageDesk/GarageDesk/internal/money"
	"github.com/GarageDesk/GarageDesk/internal/query"
	"github.com/GarageDesk/GarageDesk/internal/vehicle"
)

type fixture struct {
	svc      *Service
	db       *gorm.DB
	custID   string
	vehID    string
	plateVeh string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&customer.Customer{}, &vehicle.Vehicle{}, &ServiceRecord{}))

	cust := customer.Customer{ID: uuid.NewString(), Name: "Γιώργος Παπαδόπουλος", Phone: "6971234567"}
	require.NoError(t, db.Create(&cust).Error)
	veh := vehicle.Vehicle{ID: uuid.NewString(), CustomerID: cust.ID, Make: "Toyota", Model: "Corolla", LicensePlate: "ΑΒΓ-1234"}
	require.NoError(t, db.Create(&veh).Error)
	veh2 := vehicle.Vehicle{ID: uuid.NewString(), CustomerID: cust.ID, Make: "Fiat", Model: "Panda", LicensePlate: "ΙΚΧ-5678"}
	require.NoError(t, db.Create(&veh2).Error)

	svc := NewService(NewRepo(db), customer.NewRepo(db), vehicle.NewRepo(db), Options{})
	return &fixture{svc: svc, db: db, custID: cust.ID, vehID: veh.ID, plateVeh: veh2.ID}
}

func (f *fixture) mustCreate(t *testing.T, vehID string, date time.Time, lines []money.Line) *ServiceRecord {
	t.Helper()
	rec, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID: f.custID,
		VehicleID:  vehID,
		Date:       date,
		Lines:      lines,
	})
	require.NoError(t, err)
	return rec
}

func TestCreatePersistsDerivedAmounts(t *testing.T) {
	f := newFixture(t)
	rec := f.mustCreate(t, f.vehID, time.Now(), []money.Line{
		{Description: "Αλλαγή λαδιών", Quantity: 2, UnitPriceCents: 5000},
		{Description: "Φίλτρο αέρα", Quantity: 1, UnitPriceCents: 3000},
	})

	var stored ServiceRecord
	require.NoError(t, f.db.First(&stored, "id = ?", rec.ID).Error)
	require.EqualValues(t, 13000, stored.SubtotalCents)
	require.EqualValues(t, 3120, stored.VATCents)
	require.EqualValues(t, 16120, stored.TotalCents)
	require.Len(t, stored.Lines, 2)
	require.Equal(t, "Αλλαγή λαδιών", stored.Lines[0].Description)
}

func TestCreateRejectsForeignVehicle(t *testing.T) {
	f := newFixture(t)

	other := customer.Customer{ID: uuid.NewString(), Name: "Άλλος Πελάτης"}
	require.NoError(t, f.db.Create(&other).Error)

	_, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID: other.ID,
		VehicleID:  f.vehID,
		Lines:      []money.Line{{Description: "Service", Quantity: 1, UnitPriceCents: 1000}},
	})
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestCreateRejectsMissingReferences(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID: "no-such-customer",
		VehicleID:  f.vehID,
		Lines:      []money.Line{{Description: "Service", Quantity: 1, UnitPriceCents: 1000}},
	})
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestSearchTermAndMatchField(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.mustCreate(t, f.vehID, now, []money.Line{{Description: "Αλλαγή λαδιών", Quantity: 1, UnitPriceCents: 5000}})
	f.mustCreate(t, f.plateVeh, now, []money.Line{{Description: "Φρένα", Quantity: 1, UnitPriceCents: 9000}})

	// 车辆字段命中
	res, err := f.svc.Search(context.Background(), query.Params{Term: "corolla"})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	require.Equal(t, "vehicle", res.Items[0].MatchField)
	require.Equal(t, "Toyota", res.Items[0].VehicleMake)

	// 牌照字段命中
	res, err = f.svc.Search(context.Background(), query.Params{Term: "ικχ"})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	require.Equal(t, "license_plate", res.Items[0].MatchField)

	// 客户名命中的优先级高于描述
	res, err = f.svc.Search(context.Background(), query.Params{Term: "παπαδόπουλος"})
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Total)
	require.Equal(t, "customer", res.Items[0].MatchField)

	// 限定字段搜索直接标注该字段
	res, err = f.svc.Search(context.Background(), query.Params{Term: "λαδιών", Field: query.FieldDescription})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	require.Equal(t, "description", res.Items[0].MatchField)

	// 零行命中是正常结果，不是错误
	res, err = f.svc.Search(context.Background(), query.Params{Term: "δεν-υπάρχει"})
	require.NoError(t, err)
	require.EqualValues(t, 0, res.Total)
	require.Empty(t, res.Items)
}

func TestSearchFiltersAndOrdering(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	old := f.mustCreate(t, f.vehID, now.AddDate(0, -2, 0), []money.Line{{Description: "Παλιό", Quantity: 1, UnitPriceCents: 1000}})
	recent := f.mustCreate(t, f.vehID, now, []money.Line{{Description: "Σήμερα", Quantity: 1, UnitPriceCents: 2000}})
	big := f.mustCreate(t, f.vehID, now, []money.Line{{Description: "Μεγάλο", Quantity: 1, UnitPriceCents: 60000}})

	res, err := f.svc.Search(context.Background(), query.Params{Filter: query.FilterToday})
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Total)

	res, err = f.svc.Search(context.Background(), query.Params{Filter: query.FilterHighValue})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	require.Equal(t, big.ID, res.Items[0].ID)

	// date DESC：最老的排最后
	res, err = f.svc.Search(context.Background(), query.Params{})
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Total)
	require.Equal(t, old.ID, res.Items[2].ID)
	_ = recent
}

func TestSearchPaginationCountsWholeCorpus(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	for i := 0; i < 30; i++ {
		f.mustCreate(t, f.vehID, now.AddDate(0, 0, -i), []money.Line{{Description: "Service", Quantity: 1, UnitPriceCents: 1000}})
	}

	res, err := f.svc.Search(context.Background(), query.Params{Page: 2, PageSize: 25})
	require.NoError(t, err)
	require.EqualValues(t, 30, res.Total)
	require.Len(t, res.Items, 5)
	require.EqualValues(t, 2, res.TotalPages(25))

	// 超出末页的请求：空页 + total 不变，不是错误
	res, err = f.svc.Search(context.Background(), query.Params{Page: 3, PageSize: 25})
	require.NoError(t, err)
	require.EqualValues(t, 30, res.Total)
	require.Empty(t, res.Items)
}

func TestSearchPagesCoverCorpusWithoutGaps(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	for i := 0; i < 30; i++ {
		f.mustCreate(t, f.vehID, now.AddDate(0, 0, -i), []money.Line{{Description: "Service", Quantity: 1, UnitPriceCents: 1000}})
	}

	// 逐页取完,并集必须恰好是全集:无重复、无遗漏
	seen := make(map[string]bool)
	for page := 1; page <= 2; page++ {
		res, err := f.svc.Search(context.Background(), query.Params{Page: page, PageSize: 25})
		require.NoError(t, err)
		for _, row := range res.Items {
			require.False(t, seen[row.ID], "记录 %s 出现在多页", row.ID)
			seen[row.ID] = true
		}
	}
	require.Len(t, seen, 30)
}

func TestRevenueSharesSearchPredicate(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.mustCreate(t, f.vehID, now, []money.Line{{Description: "Μεγάλο", Quantity: 1, UnitPriceCents: 60000}})
	f.mustCreate(t, f.vehID, now, []money.Line{{Description: "Μικρό", Quantity: 1, UnitPriceCents: 1000}})

	sum, err := f.svc.Revenue(context.Background(), query.Params{Filter: query.FilterHighValue})
	require.NoError(t, err)
	require.EqualValues(t, 1, sum.Count)
	// 60000 + 24% VAT
	require.EqualValues(t, 74400, sum.TotalCents)
	require.Equal(t, "744.00", sum.TotalDisplay)
}

func TestUpdateRederivesAmounts(t *testing.T) {
	f := newFixture(t)
	rec := f.mustCreate(t, f.vehID, time.Now(), []money.Line{{Description: "Service", Quantity: 1, UnitPriceCents: 1000}})

	updated, err := f.svc.Update(context.Background(), rec.ID, CreateInput{
		CustomerID: f.custID,
		VehicleID:  f.vehID,
		Date:       rec.Date,
		Lines:      []money.Line{{Description: "Φρένα", Quantity: 1, UnitPriceCents: 8000}},
	})
	require.NoError(t, err)
	require.Equal(t, rec.ID, updated.ID)
	require.EqualValues(t, 8000, updated.SubtotalCents)
	require.Equal(t, "Φρένα", updated.Summary)

	var count int64
	require.NoError(t, f.db.Model(&ServiceRecord{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestDeleteAndPurge(t *testing.T) {
	f := newFixture(t)
	rec := f.mustCreate(t, f.vehID, time.Now(), []money.Line{{Description: "Service", Quantity: 1, UnitPriceCents: 1000}})

	require.NoError(t, f.svc.Delete(context.Background(), rec.ID))
	_, err := f.svc.Get(context.Background(), rec.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.ErrorIs(t, f.svc.Delete(context.Background(), rec.ID), errs.ErrNotFound)
}

func TestRemoveVehiclePurgesItsRecords(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.mustCreate(t, f.vehID, now, []money.Line{{Description: "Service", Quantity: 1, UnitPriceCents: 10000}})
	keep := f.mustCreate(t, f.plateVeh, now, []money.Line{{Description: "Φρένα", Quantity: 1, UnitPriceCents: 2000}})

	custSvc := customer.NewService(customer.NewRepo(f.db), vehicle.NewRepo(f.db), NewRepo(f.db))
	require.NoError(t, custSvc.RemoveVehicle(context.Background(), f.vehID))

	// 删车后列表谓词与报表区间统计必须看到同一个全集：没有孤儿工单
	sum, err := f.svc.Revenue(context.Background(), query.Params{})
	require.NoError(t, err)
	total, count, err := NewRepo(f.db).SumBetween(context.Background(), now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.EqualValues(t, sum.Count, count)
	require.EqualValues(t, sum.TotalCents, total)
	require.EqualValues(t, 1, count)
	require.EqualValues(t, keep.TotalCents, total)
}

func TestBuildInvoiceFetchesFreshRecord(t *testing.T) {
	f := newFixture(t)
	rec := f.mustCreate(t, f.vehID, time.Now(), []money.Line{
		{Description: "Αλλαγή λαδιών", Quantity: 2, UnitPriceCents: 5000},
	})

	inv, err := f.svc.BuildInvoice(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, "Γιώργος Παπαδόπουλος", inv.CustomerName)
	require.Equal(t, "Toyota Corolla", inv.VehicleLabel)
	require.Equal(t, "ΑΒΓ-1234", inv.LicensePlate)
	require.Len(t, inv.Lines, 1)
	require.Equal(t, "100.00", inv.Lines[0].LineTotal)
	require.Equal(t, "124.00", inv.Total)

	body, contentType, err := PlainTextExporter{}.Export(context.Background(), *inv)
	require.NoError(t, err)
	require.Contains(t, string(body), "Αλλαγή λαδιών")
	require.Contains(t, contentType, "text/plain")
}

func TestSearchTimeoutMapsToErrTimeout(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Search(ctx, query.Params{})
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrSuperseded)
}
