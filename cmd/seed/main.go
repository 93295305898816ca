// seed 向开发库灌入示例数据：一个管理员账号、一批客户/车辆和
// 最近几个月的工单，全部经由领域服务落库，保证金额与摘要按正式
// 路径派生。
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/GarageDesk/GarageDesk/internal/common/config"
	"github.com/GarageDesk/GarageDesk/internal/common/db"
	"github.com/GarageDesk/GarageDesk/internal/common/logger"
	"github.com/GarageDesk/GarageDesk/internal/customer"
	"github.com/GarageDesk/GarageDesk/internal/money"
	"github.com/GarageDesk/GarageDesk/internal/profile"
	"github.com/GarageDesk/GarageDesk/internal/vehicle"
	"github.com/GarageDesk/GarageDesk/internal/workorder"
)

var (
	configPath = flag.String("config", "configs/garage-service.json", "配置文件路径")
	seed       = flag.Int64("seed", 42, "随机种子")
)

type seedCustomer struct {
	name     string
	phone    string
	vehicles []seedVehicle
}

type seedVehicle struct {
	make_ string
	model string
	year  int
	plate string
}

var customers = []seedCustomer{
	{"Γιώργος Παπαδόπουλος", "6971234501", []seedVehicle{
		{"Toyota", "Corolla", 2018, "ΑΒΓ-1234"},
		{"Fiat", "Panda", 2011, "ΙΚΧ-5678"},
	}},
	{"Μαρία Ιωάννου", "6971234502", []seedVehicle{
		{"Volkswagen", "Golf", 2020, "ΖΗΘ-4321"},
	}},
	{"Νίκος Δημητρίου", "6971234503", []seedVehicle{
		{"Opel", "Corsa", 2016, "ΚΛΜ-8765"},
	}},
	{"Ελένη Αντωνίου", "6971234504", []seedVehicle{
		{"Peugeot", "208", 2019, "ΝΞΟ-2468"},
		{"Suzuki", "Swift", 2014, "ΠΡΣ-1357"},
	}},
	{"Κώστας Γεωργίου", "6971234505", []seedVehicle{
		{"Ford", "Focus", 2017, "ΤΥΦ-9753"},
	}},
}

var serviceLines = [][]money.Line{
	{
		{Description: "Αλλαγή λαδιών", Quantity: 1, UnitPriceCents: 4500},
		{Description: "Φίλτρο λαδιού", Quantity: 1, UnitPriceCents: 1500},
	},
	{
		{Description: "Τακάκια φρένων εμπρός", Quantity: 2, UnitPriceCents: 6500},
	},
	{
		{Description: "Μεγάλο σέρβις", Quantity: 1, UnitPriceCents: 28000},
		{Description: "Ιμάντας χρονισμού", Quantity: 1, UnitPriceCents: 32000},
	},
	{
		{Description: "Αλλαγή ελαστικών", Quantity: 4, UnitPriceCents: 8500},
		{Description: "Ευθυγράμμιση", Quantity: 1, UnitPriceCents: 3500},
	},
	{
		{Description: "Έλεγχος ΚΤΕΟ", Quantity: 1, UnitPriceCents: 5400},
	},
}

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	gormDB, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&profile.User{},
		&customer.Customer{},
		&vehicle.Vehicle{},
		&workorder.ServiceRecord{},
	); err != nil {
		log.Fatalf("failed to migrate mysql schema: %v", err)
	}

	customerRepo := customer.NewRepo(gormDB)
	vehicleRepo := vehicle.NewRepo(gormDB)
	recordRepo := workorder.NewRepo(gormDB)
	profileRepo := profile.NewRepo(gormDB)

	profileSvc := profile.NewService(profileRepo, cfg.Auth, profile.Options{}, log)
	customerSvc := customer.NewService(customerRepo, vehicleRepo, recordRepo)
	recordSvc := workorder.NewService(recordRepo, customerRepo, vehicleRepo, workorder.Options{
		VATRateBasisPoints: cfg.Garage.VATRateBasisPoints,
		HighValueCents:     cfg.Garage.HighValueCents,
	})

	ctx := context.Background()
	rng := rand.New(rand.NewSource(*seed))

	for _, acct := range []struct{ username, password, fullName, role string }{
		{"admin", "admin-dev-only", "Διαχειριστής", "admin"},
		{"mechanic", "mechanic-dev-only", "Μηχανικός", "mechanic"},
		{"secretary", "secretary-dev-only", "Γραμματεία", "secretary"},
	} {
		if _, err := profileSvc.Register(ctx, profile.RegisterInput{
			Username: acct.username,
			Password: acct.password,
			FullName: acct.fullName,
			Role:     acct.role,
		}); err != nil {
			log.Warnf("skip user %s: %v", acct.username, err)
		}
	}

	now := time.Now()
	for _, sc := range customers {
		c, err := customerSvc.Create(ctx, customer.CreateInput{Name: sc.name, Phone: sc.phone})
		if err != nil {
			log.Warnf("skip customer %s: %v", sc.name, err)
			continue
		}
		for _, sv := range sc.vehicles {
			v, err := customerSvc.AddVehicle(ctx, c.ID, vehicle.Vehicle{
				Make:         sv.make_,
				Model:        sv.model,
				Year:         sv.year,
				LicensePlate: sv.plate,
			})
			if err != nil {
				log.Warnf("skip vehicle %s: %v", sv.plate, err)
				continue
			}

			// 每台车最近半年 2~5 张工单
			for i, n := 0, 2+rng.Intn(4); i < n; i++ {
				date := now.AddDate(0, 0, -rng.Intn(180))
				lines := serviceLines[rng.Intn(len(serviceLines))]
				if _, err := recordSvc.Create(ctx, workorder.CreateInput{
					CustomerID: c.ID,
					VehicleID:  v.ID,
					Date:       date,
					Lines:      lines,
					Mileage:    int64(30000 + rng.Intn(150000)),
				}); err != nil {
					log.Warnf("skip record for %s: %v", sv.plate, err)
				}
			}
		}
	}

	log.Info("seed completed")
}
