package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"servana/config"
	"servana/cron"
	"servana/database"
	availabilityRepoPkg "servana/database/repository/availability"
	balanceRepoPkg "servana/database/repository/balance"
	bookingRepoPkg "servana/database/repository/booking"
	escrowRepoPkg "servana/database/repository/escrow"
	notificationRepoPkg "servana/database/repository/notification"
	policyRepoPkg "servana/database/repository/policy"
	timeslotRepoPkg "servana/database/repository/timeslot"
	waitlistRepoPkg "servana/database/repository/waitlist"
	"servana/handlers"
	"servana/routes"
	"servana/services/availability"
	"servana/services/booking"
	"servana/services/escrow"
	"servana/services/notification"
	"servana/services/policy"
	"servana/services/waitlist"
	"servana/utils"

	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitEventCache()
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	slotRepo := timeslotRepoPkg.NewMongoTimeSlotRepo()
	templateRepo := availabilityRepoPkg.NewMongoAvailabilityRepo()
	bkRepo := bookingRepoPkg.NewMongoBookingRepo()
	escRepo := escrowRepoPkg.NewMongoEscrowRepo()
	balRepo := balanceRepoPkg.NewMongoBalanceRepo()
	polRepo := policyRepoPkg.NewMongoPolicyRepo()
	wlRepo := waitlistRepoPkg.NewMongoWaitlistRepo()
	notifRepo := notificationRepoPkg.NewMongoNotificationRepo()

	// async dispatch queue.
	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer queueClient.Close()
	cron.InitNotificationWorker(notifRepo)

	// services.
	notifSvc := notification.NewDefaultNotificationService(notifRepo, queueClient, logger)

	availabilitySvc := &availability.DefaultAvailabilityService{
		Slots:     slotRepo,
		Templates: templateRepo,
		Bookings:  bkRepo,
		Cache:     utils.GetCacheClient(),
		Logger:    logger,
	}

	policySvc := &policy.DefaultPolicyEngine{
		Repo:     polRepo,
		Bookings: bkRepo,
		Logger:   logger,
	}

	escrowSvc := &escrow.DefaultEscrowService{
		Repo:     escRepo,
		Balances: balRepo,
		Bookings: bkRepo,
		Notifier: notifSvc,
		Events:   utils.GetEventCacheClient(),
		Logger:   logger,
		HoldDays: config.AppConfig.EscrowHoldDays,
		FeeRate:  config.AppConfig.PlatformFeeRate,
	}

	bookingSvc := &booking.DefaultBookingService{
		Repo:         bkRepo,
		Availability: availabilitySvc,
		Escrow:       escrowSvc,
		Policy:       policySvc,
		Notifier:     notifSvc,
		Logger:       logger,
		PendingHold:  time.Duration(config.AppConfig.PendingHoldHours) * time.Hour,
	}

	waitlistSvc := &waitlist.DefaultWaitlistService{
		Repo:              wlRepo,
		Bookings:          bookingSvc,
		Availability:      availabilitySvc,
		Notifier:          notifSvc,
		Logger:            logger,
		NotifyWindowHours: config.AppConfig.WaitlistNotifyHours,
	}
	// Freed slots flow back to the waitlist. Wired after construction to
	// keep the package dependency one-way.
	bookingSvc.Waitlist = waitlistSvc

	taskRunner := &cron.TaskRunner{
		Escrow:      escrowSvc,
		Bookings:    bookingSvc,
		BookingRepo: bkRepo,
		Waitlist:    waitlistSvc,
		Notifier:    notifSvc,
		Logger:      logger,
	}
	scheduler := cron.StartScheduler(taskRunner)
	defer scheduler.Stop()

	handlerBundle := &handlers.HandlerBundle{
		Availability: availabilitySvc,
		Bookings:     bookingSvc,
		Escrow:       escrowSvc,
		Policy:       policySvc,
		Waitlist:     waitlistSvc,
		Notifier:     notifSvc,
		Tasks:        taskRunner,
	}

	router := routes.SetupRouter(handlerBundle)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
