package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shiftbook-backend/config"
	"shiftbook-backend/events"
	"shiftbook-backend/models"
	"shiftbook-backend/routes"
	"shiftbook-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "shiftbook",
		Short:        "Shift booking API with one-shot reminders",
		SilenceUsage: true,
	}

	serve := newServeCmd()
	root.AddCommand(serve)
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newRoutesCmd())
	root.RunE = serve.RunE

	return root
}

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cfg, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "run database migrations on startup")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := config.ConnectDB(cfg)
			if err != nil {
				return err
			}
			if err := models.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Println("Migrations applied")
			return nil
		},
	}
}

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the HTTP route table",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := routes.SetupRouter(routes.Dependencies{Events: events.NoopPublisher{}})
			printRoutes(cmd, r)
			return nil
		},
	}
}

func printRoutes(cmd *cobra.Command, r *gin.Engine) {
	for _, route := range r.Routes() {
		fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", route.Method, route.Path)
	}
}

func newDispatcher(cfg config.Config) services.Dispatcher {
	var d services.Dispatcher = services.ConsoleDispatcher{}
	if cfg.TwilioEnabled() {
		d = services.NewTwilioDispatcher(services.TwilioParams{
			AccountSID:     cfg.TwilioAccountSID,
			AuthToken:      cfg.TwilioAuthToken,
			PhoneNumber:    cfg.TwilioPhoneNumber,
			WhatsAppNumber: cfg.TwilioWhatsAppNumber,
			To:             cfg.NotifyTo,
			Timeout:        cfg.DispatchTimeout,
		})
	} else {
		log.Println("Twilio not configured, reminders will be logged to the console")
	}
	return services.NewLimitedDispatcher(d, cfg.DispatchConcurrency)
}

func newPublisher(cfg config.Config) events.Publisher {
	if cfg.RabbitURL == "" {
		return events.NoopPublisher{}
	}
	p, err := events.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitExchange)
	if err != nil {
		log.Printf("[EVENTS] rabbitmq unavailable, events disabled: %v", err)
		return events.NoopPublisher{}
	}
	return p
}

func serve(cfg config.Config, migrate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.ConnectDB(cfg)
	if err != nil {
		return err
	}
	if migrate {
		if err := models.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	publisher := newPublisher(cfg)
	defer publisher.Close()

	registry := services.NewJobRegistry()
	reminderLogs := services.NewReminderLogStore(db)
	scheduler := services.NewShiftScheduler(
		registry,
		newDispatcher(cfg),
		services.RealClock(),
		cfg.ReminderLeadTime,
		services.WithReminderRecorder(reminderLogs),
		services.WithEventPublisher(publisher),
		services.WithMaxPending(cfg.MaxPendingReminders),
		services.WithDispatchTimeout(cfg.DispatchTimeout),
	)
	defer scheduler.Stop()

	maintenance := services.NewMaintenanceService(reminderLogs, registry, cfg.ReminderLogRetention(), services.RealClock())
	maintenanceCron, err := maintenance.StartScheduler(cfg.MaintenanceSchedule)
	if err != nil {
		return fmt.Errorf("maintenance schedule: %w", err)
	}
	defer maintenanceCron.Stop()

	r := routes.SetupRouter(routes.Dependencies{
		Config:    cfg,
		DB:        db,
		Scheduler: scheduler,
		Logs:      reminderLogs,
		Events:    publisher,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s (reminder lead time %s)", srv.Addr, cfg.ReminderLeadTime)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
