package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/auth"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/cache"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/config"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/db"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/routers"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/service"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type stores struct {
	users    service.UserRepo
	lookup   service.UserLookup
	orders   service.OrderRepo
	spins    service.SpinStore
	wallet   service.WalletRepo
	products service.ProductRepo
}

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Не удалось инициализировать zap logger: %v", err)
	}
	defer func() {
		logger.Sync()
		if r := recover(); r != nil {
			logger.Fatal("Неожиданное завершение приложения", zap.Any("panic", r))
		}
	}()

	cfg, err := config.New()
	if err != nil {
		logger.Fatal("Ошибка чтения конфигурации", zap.Error(err))
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Ошибка часового пояса", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var st stores
	if cfg.DatabaseURI != "" {
		dbConn, err := db.Init(cfg.DatabaseURI)
		if err != nil {
			logger.Fatal("Ошибка подключения к БД", zap.Error(err))
		}
		defer func() {
			logger.Info("Закрытие соединения с БД")
			dbConn.Close()
		}()
		if err := db.Migrate(dbConn); err != nil {
			logger.Fatal("Ошибка миграции БД", zap.Error(err))
		}
		users := db.NewUserRepoPG(dbConn)
		spins := db.NewSpinRepoPG(dbConn, logger)
		st = stores{
			users:    users,
			lookup:   users,
			orders:   db.NewOrderRepoPG(dbConn),
			spins:    spins,
			wallet:   spins,
			products: db.NewProductRepoPG(dbConn),
		}
	} else {
		logger.Warn("DATABASE_URI не задан, данные хранятся в памяти")
		mem := db.NewMemoryStore()
		st = stores{users: mem, lookup: mem, orders: mem, spins: mem, wallet: mem, products: mem}
	}

	var replay service.ReplayCache
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("Redis недоступен, кэш повторов отключён", zap.Error(err))
		} else {
			defer client.Close()
			replay = cache.NewRedisReplayCache(client)
		}
	}

	tokens := auth.NewManager(cfg.JWTSecret)
	userService := service.NewUserService(st.users, tokens)
	payments := service.NewHTTPPaymentClient(cfg.PaymentSystemAddress, &http.Client{Timeout: 10 * time.Second})
	orderService := service.NewOrderService(st.orders, payments)
	spinService := service.NewSpinService(st.spins, replay, loc, cfg.SpinStoreRetries, logger)
	if cfg.AdminLogin == "" {
		logger.Warn("ADMIN_LOGIN не задан, администрирование каталога и наград отключено")
	}
	admin := service.NewAdminPolicy(st.lookup, cfg.AdminLogin)
	catalogService := service.NewCatalogService(st.products, admin, logger)
	walletService := service.NewWalletService(st.wallet, admin, logger)

	h := routers.NewHandler(userService, orderService, spinService, catalogService, walletService, logger)
	r := routers.SetupRoutersWithLogger(h, tokens, logger)

	if cfg.PaymentSystemAddress != "" {
		orderService.StartConfirmationWorker(ctx, cfg.ConfirmInterval, logger)
	} else {
		logger.Warn("PAYMENT_SYSTEM_ADDRESS не задан, заказы не подтверждаются автоматически")
	}

	server := &http.Server{Addr: cfg.RunAddress, Handler: r}
	go func() {
		logger.Info("Сервер запущен", zap.String("address", cfg.RunAddress), zap.String("spin_timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ошибка запуска сервера", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Остановка сервера")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки сервера", zap.Error(err))
	}
}
