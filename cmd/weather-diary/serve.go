package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-diary/internal/api/http"
	"github.com/i474232898/weather-diary/internal/scheduler"
)

// getServeCmd returns the definition of the serve command.
func getServeCmd(env *rootEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and refresh the archive periodically.",
		RunE:  env.runServeCmd,
	}
}

func (e *rootEnv) runServeCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	service := e.newService()

	// Scheduler that periodically scrapes recent months and repartitions.
	if e.cfg.SchedulerEnabled {
		sched := scheduler.New(e.cfg.FetchInterval, service, e.logger)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-diary",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-diary",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		e.logger.Info("serve: listening", zap.String("port", e.cfg.Port))
		if err := app.Listen(":" + e.cfg.Port); err != nil {
			e.logger.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		e.logger.Error("error during shutdown", zap.Error(err))
	}
	return nil
}
