package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/GarageDesk/GarageDesk/internal/common/config"
	"github.com/GarageDesk/GarageDesk/internal/common/db"
	"github.com/GarageDesk/GarageDesk/internal/common/logger"
	"github.com/GarageDesk/GarageDesk/internal/common/middleware"
	"github.com/GarageDesk/GarageDesk/internal/common/server"
	"github.com/GarageDesk/GarageDesk/internal/common/tracing"
	"github.com/GarageDesk/GarageDesk/internal/customer"
	"github.com/GarageDesk/GarageDesk/internal/profile"
	"github.com/GarageDesk/GarageDesk/internal/rbac"
	"github.com/GarageDesk/GarageDesk/internal/report"
	"github.com/GarageDesk/GarageDesk/internal/vehicle"
	"github.com/GarageDesk/GarageDesk/internal/workorder"
)

var (
	configPath   = flag.String("config", "configs/garage-service.json", "配置文件路径")
	consulKVKey  = flag.String("config-from-consul", "", "从 Consul KV 的该 key 加载配置（优先于本地文件）")
	consulKVHost = flag.String("consul-host", "127.0.0.1", "Consul 地址（配合 -config-from-consul）")
	consulKVPort = flag.Int("consul-port", 8500, "Consul 端口（配合 -config-from-consul）")
)

func main() {
	flag.Parse()

	// 加载配置：指定了 Consul KV key 时走 KV，否则读本地文件
	var (
		cfg *config.Config
		err error
	)
	if *consulKVKey != "" {
		cfg, err = config.LoadConfigFromConsulKV(*consulKVHost, *consulKVPort, *consulKVKey)
	} else {
		cfg, err = config.LoadConfig(*configPath)
	}
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 初始化数据库
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

	// 组装各领域服务
	customerRepo := customer.NewRepo(gormDB)
	vehicleRepo := vehicle.NewRepo(gormDB)
	recordRepo := workorder.NewRepo(gormDB)
	profileRepo := profile.NewRepo(gormDB)

	profileSvc := profile.NewService(profileRepo, cfg.Auth, profile.Options{
		ProfileTimeout: cfg.Garage.ProfileTimeout.Std(),
	}, log)
	customerSvc := customer.NewService(customerRepo, vehicleRepo, recordRepo)
	recordSvc := workorder.NewService(recordRepo, customerRepo, vehicleRepo, workorder.Options{
		VATRateBasisPoints: cfg.Garage.VATRateBasisPoints,
		HighValueCents:     cfg.Garage.HighValueCents,
		QueryTimeout:       cfg.Garage.QueryTimeout.Std(),
	})
	reportSvc := report.NewService(recordRepo)

	// API 限流：令牌桶兜底，防止突发流量打爆数据库
	apiLimiter := middleware.NewTokenBucket(200, 100)

	// 启动统一的 HTTP 服务模板
	if err := server.RunHTTPServer(cfg, log, func(e *echo.Echo) error {
		api := e.Group("/api/v1",
			rbac.ResolvePermissions(profileSvc.RoleFor),
			middleware.RateLimit(apiLimiter),
		)
		profile.NewHandler(profileSvc).Register(api)
		customer.NewHandler(customerSvc).Register(api)
		workorder.NewHandler(recordSvc, nil).Register(api)
		report.NewHandler(reportSvc).Register(api)
		return nil
	}, server.WithShutdownTimeout(10*time.Second)); err != nil {
		log.Fatalf("garage-service exited with error: %v", err)
	}
}
