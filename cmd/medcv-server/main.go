package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medcv/medcv/internal/config"
	"github.com/medcv/medcv/internal/domain/authn"
	"github.com/medcv/medcv/internal/domain/doctor"
	"github.com/medcv/medcv/internal/domain/institution"
	"github.com/medcv/medcv/internal/domain/medicalrecord"
	"github.com/medcv/medcv/internal/domain/patient"
	"github.com/medcv/medcv/internal/domain/role"
	"github.com/medcv/medcv/internal/domain/stats"
	"github.com/medcv/medcv/internal/domain/user"
	"github.com/medcv/medcv/internal/platform/audit"
	"github.com/medcv/medcv/internal/platform/auth"
	"github.com/medcv/medcv/internal/platform/db"
	"github.com/medcv/medcv/internal/platform/middleware"
	"github.com/medcv/medcv/pkg/apperr"
	"github.com/medcv/medcv/pkg/response"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medcv-server",
		Short: "Medical CV API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("applied %d migration(s)\n", n)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = fmt.Sprintf("applied %s", s.AppliedAt.Format(time.RFC3339))
				}
				fmt.Printf("%03d %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	runner := db.NewPoolTxRunner(pool)
	issuer := auth.NewIssuer(cfg.EffectiveJWTSecret(), time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	auditor := audit.NewPGRecorder(pool)

	// Repositories
	instRepo := institution.NewRepo(pool)
	userRepo := user.NewRepo(pool)
	roleRepo := role.NewRepo(pool)
	doctorRepo := doctor.NewRepo(pool)
	patientRepo := patient.NewRepo(pool)
	recordRepo := medicalrecord.NewRepo(pool)

	// Services
	instSvc := institution.NewService(instRepo, userRepo, runner, logger)
	userSvc := user.NewService(userRepo)
	roleSvc := role.NewService(roleRepo)
	doctorSvc := doctor.NewService(doctorRepo, recordRepo)
	patientSvc := patient.NewService(patientRepo, recordRepo)
	recordSvc := medicalrecord.NewService(recordRepo, patientRepo, doctorRepo, auditor, logger)
	authSvc := authn.NewService(userRepo, doctorRepo, patientRepo, instRepo, issuer, runner, auditor, logger)
	statsSvc := stats.NewService(instRepo, userRepo, doctorRepo, patientRepo, recordRepo)

	if err := roleSvc.EnsureSystemRoles(ctx); err != nil {
		return fmt.Errorf("seed system roles: %w", err)
	}
	if err := authSvc.EnsureDefaultAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, "X-Request-ID", "X-Emergency-Override"},
	}))

	e.GET("/health", db.HealthHandler(pool))

	api := e.Group("/api/v1")

	// Public surface: sign-in, sign-up, and the patient record lookup.
	authn.NewHandler(authSvc).RegisterRoutes(api)
	medrecHandler := medicalrecord.NewHandler(recordSvc)
	medrecHandler.RegisterPublicRoutes(api)

	// Everything else requires a valid token.
	authed := api.Group("", auth.Authenticate(issuer, authSvc))
	authn.NewHandler(authSvc).RegisterAuthedRoutes(authed)
	institution.NewHandler(instSvc).RegisterRoutes(authed)
	user.NewHandler(userSvc).RegisterRoutes(authed)
	role.NewHandler(roleSvc).RegisterRoutes(authed)
	doctor.NewHandler(doctorSvc).RegisterRoutes(authed)
	patient.NewHandler(patientSvc).RegisterRoutes(authed)
	medrecHandler.RegisterRoutes(authed)
	stats.NewHandler(statsSvc).RegisterRoutes(authed)

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// errorHandler maps application errors onto the response envelope. Internal
// errors are logged with their cause but reported to clients generically.
func errorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := "internal server error"

		var ae *apperr.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			switch ae.Kind {
			case apperr.KindNotFound:
				status = http.StatusNotFound
			case apperr.KindUnauthenticated:
				status = http.StatusUnauthorized
			case apperr.KindForbidden:
				status = http.StatusForbidden
			case apperr.KindConflict:
				status = http.StatusConflict
			case apperr.KindValidation:
				status = http.StatusBadRequest
			}
			if ae.Kind != apperr.KindInternal {
				msg = ae.Message
			}
		case errors.As(err, &he):
			status = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		}

		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = response.Error(c, status, msg)
	}
}
