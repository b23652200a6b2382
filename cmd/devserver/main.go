package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/partshub/storefront/internal/backend"
	"github.com/partshub/storefront/internal/config"
)

// devserver implements the wire contract the storefront client expects:
// /auth/login, /auth/register, /auth/verify, /health and the product catalog.
func main() {
	cfg := config.Load()
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_HS256_SECRET")

	db, err := backend.OpenDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := backend.Seed(db); err != nil {
		log.Fatalf("seed error: %v", err)
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := backend.Deps{
		Auth:     &backend.AuthHandler{DB: db, JWTSecret: cfg.JWTSecret},
		Products: &backend.ProductHandler{DB: db},
	}
	backend.Register(e, &deps)

	srv := &http.Server{
		Addr:         cfg.DevServerAddr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
