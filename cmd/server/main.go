package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"sharebrokering/internal/config"
	"sharebrokering/internal/currency"
	apphttp "sharebrokering/internal/http"
	"sharebrokering/internal/jobs"
	"sharebrokering/internal/pricefeed"
	"sharebrokering/internal/repository/xmlfile"
	"sharebrokering/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stockStore := xmlfile.NewStockStore(cfg.Store.StocksFile)
	userStore := xmlfile.NewUserStore(cfg.Store.UsersFile)

	feed := pricefeed.NewHTTPClient(cfg.PriceFeed.URL, nil)
	converter := currency.NewAPIClient(cfg.Currency.URL, nil)

	userService := service.NewUserService(userStore, stockStore, converter, logger)
	stockService := service.NewStockService(stockStore, userService, feed, logger)

	refresher := jobs.NewPriceRefresher(jobs.Config{
		InitialDelay: cfg.Refresh.InitialDelay,
		Interval:     cfg.Refresh.Interval,
		Logger:       logger,
	}, stockStore, feed)
	refresher.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		stockService,
		userService,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	refresher.Stop()

	logger.Info("bye")
}
