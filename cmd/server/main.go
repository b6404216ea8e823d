package main // Entry point package

import (
	"time"

	"github.com/joho/godotenv"    // loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework
	"github.com/sirupsen/logrus"  // structured logging

	"github.com/venuely/slot-booking/internal/clock"
	"github.com/venuely/slot-booking/internal/config"
	"github.com/venuely/slot-booking/internal/database"
	"github.com/venuely/slot-booking/internal/handler"
	"github.com/venuely/slot-booking/internal/middleware"
	"github.com/venuely/slot-booking/internal/mirror"
	"github.com/venuely/slot-booking/internal/queue"
	"github.com/venuely/slot-booking/internal/repository"
	"github.com/venuely/slot-booking/internal/router"
	"github.com/venuely/slot-booking/internal/service"
)

func main() {
	_ = godotenv.Load() // best-effort; real deployments export vars directly
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Env == "dev" {
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("mysql connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		// The mirror is the availability fast path; without Redis the
		// service cannot honor its read contract.
		log.Fatal("redis connection failed")
	}

	clk := clock.NewSystem()
	txr := repository.NewTxRunner(db)
	slotRepo := repository.NewSlotRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	venueRepo := repository.NewVenueRepo(db)
	userRepo := repository.NewUserRepo(db)
	venueMirror := mirror.New(rdb)

	publisher := queue.NewPublisher(log)
	holds := service.NewHoldService(txr, slotRepo, bookingRepo, venueRepo, venueMirror, clk, log,
		service.WithHoldTTL(time.Duration(cfg.HoldTTLMin)*time.Minute))
	coord := service.NewBookingService(txr, slotRepo, bookingRepo, venueRepo, venueMirror, publisher, clk, log)
	slots := service.NewSlotService(txr, slotRepo, venueRepo, venueMirror, clk, log)

	// Payment events drive confirmations; the consumer reconnects on its own.
	go func() {
		if err := queue.StartPaymentConsumer(coord, log); err != nil {
			log.WithError(err).Error("payment consumer stopped")
		}
	}()

	e := echo.New()
	e.HideBanner = true

	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, userRepo), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(slots))
	router.RegisterCustomer(e, handler.NewCustomerHandler(holds, bookingRepo), cfg.JWTSecret, rateLimit)
	router.RegisterManager(e, handler.NewManagerHandler(venueRepo, bookingRepo, slots, coord), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
