package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/mcpserver"
	"expensetracker/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), "expense-mcp")
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	cats := cli.InitCategories(logger, cfg.CategoriesPath)

	service := services.NewExpenseService(repo, cats)
	defer service.Close()

	srv := mcpserver.New(service, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting expense tracker",
		"transport", cfg.Transport,
		"db", cfg.SQLiteDBPath,
		"categories", cfg.CategoriesPath)

	g, gctx := errgroup.WithContext(ctx)

	switch cfg.Transport {
	case config.TransportHTTP:
		httpSrv := srv.NewHTTPServer()
		g.Go(func() error {
			if err := httpSrv.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
	default:
		g.Go(func() error {
			return srv.ServeStdio(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
