package main

import (
	"context"
	"fmt"

	"bakery/internal/config"
	"bakery/internal/handler"
	"bakery/internal/infra/cache"
	"bakery/internal/infra/db"
	infraRepo "bakery/internal/infra/repository"
	"bakery/internal/repository"
	"bakery/internal/server"
	"bakery/internal/usecase"
	auth "bakery/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type app struct {
	cfg      config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	userRepo repository.UserRepository
	closers  []func()
}

// 依存を組み立てる。Redis / MongoDB は設定があるときだけ使う
func buildApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	//DB接続
	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)
	a.userRepo = userRepo

	//監査ログ：MongoDBがあればそちら
	var auditRepo repository.AuditLogRepository = infraRepo.NewAuditLogGormRepository(gormDB)
	if cfg.MongoDB.URI != "" {
		client, err := infraRepo.NewMongoClient(cfg.MongoDB)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("mongodb: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })
		auditRepo = infraRepo.NewAuditLogMongoRepository(client, cfg.MongoDB)
		logger.Info("audit logs stored in mongodb", zap.String("database", cfg.MongoDB.Database))
	}

	//商品キャッシュ：Redisがなければキャッシュなし
	var productCache repository.ProductCache = cache.NopProductCache{}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		productCache = cache.NewProductRedisCache(rdb, cfg.Redis.ProductTTL)
		logger.Info("product cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()

	//JWT issuer
	issuer := newJWTIssuer(cfg)

	//Usecase生成
	registerUC := auth.NewRegisterUserUsecase(userRepo, hasher, issuer, clock)
	loginUC := auth.NewLoginUsecase(userRepo, verifier, issuer, clock)
	profileUC := auth.NewProfileUsecase(userRepo, clock)
	productUC := usecase.NewProductUsecase(txManager, productRepo, auditRepo, productCache, clock, logger)
	orderUC := usecase.NewOrderUsecase(txManager, orderRepo, orderItemRepo, idGen, clock, productCache, cfg.LoyaltyEnabled, logger)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, orderRepo, orderItemRepo, auditRepo, clock, logger)
	adminUserUC := usecase.NewAdminUserUsecase(userRepo, auditRepo, clock, logger)
	dashboardUC := usecase.NewDashboardUsecase(productRepo, orderRepo, orderItemRepo, userRepo, logger)

	//Handler生成
	handlers := server.Handlers{
		Product:        handler.NewProductHandler(productUC),
		Auth:           handler.NewAuthHandler(registerUC, loginUC, profileUC),
		Order:          handler.NewOrderHandler(orderUC),
		AdminProduct:   handler.NewAdminProductHandler(productUC),
		AdminOrder:     handler.NewAdminOrderHandler(adminOrderUC),
		AdminUser:      handler.NewAdminUserHandler(adminUserUC),
		AdminDashboard: handler.NewAdminDashboardHandler(dashboardUC),
	}
	deps := handler.AuthDeps{Cfg: cfg, UserRepo: userRepo, Logger: logger}

	a.echo = server.New(cfg, logger, handlers, deps)
	return a, nil
}

func (a *app) run(ctx context.Context) error {
	return server.Start(ctx, a.echo, a.cfg.Addr(), a.logger)
}

// 後から開いたものから閉じる
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
