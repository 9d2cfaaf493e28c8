// Package main starts the CTF dev server: an in-memory implementation of the
// platform API used to exercise the client end to end.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/atinyakov/CTFClient/internal/certgen"
	"github.com/atinyakov/CTFClient/internal/config"
	"github.com/atinyakov/CTFClient/internal/logger"
	"github.com/atinyakov/CTFClient/internal/repository"
	"github.com/atinyakov/CTFClient/internal/server/handler/http"
	"github.com/atinyakov/CTFClient/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	_ = godotenv.Load()

	options, err := config.ParseServer(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	zapLogger, err := logger.Init(logger.ConfigFromEnv())
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := repository.NewMemory()
	authService := service.NewAuthService(store, options.JWTSecret, service.DefaultSessionTTL)
	if err := authService.EnsureAdmin(ctx, options.AdminEmail, options.AdminPassword); err != nil {
		zapLogger.Fatal("cannot seed admin", zap.Error(err))
	}

	hub := service.NewHub(zapLogger)
	go hub.Run(ctx)

	router := http.NewRouter(http.Handlers{
		Auth:          &http.AuthHandler{AuthService: authService, SessionTTL: service.DefaultSessionTTL, Log: zapLogger},
		Teams:         &http.TeamHandler{Store: store},
		Users:         &http.UserHandler{Store: store, Registrar: authService},
		Challenges:    &http.ChallengeHandler{Store: store},
		Notifications: &http.NotificationHandler{Store: store, Hub: hub, Log: zapLogger},
	}, authService, nil, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	zapLogger.Info("starting dev server",
		zap.String("addr", options.Addr),
		zap.String("admin", options.AdminEmail),
		zap.Bool("tls", options.TLSDir != ""),
	)
	if options.TLSDir == "" {
		err = server.ListenAndServe()
	} else {
		var certFile, keyFile string
		certFile, keyFile, err = certgen.EnsureDevTLS(options.TLSDir, tlsHosts(options.Addr)...)
		if err != nil {
			zapLogger.Fatal("cannot prepare TLS certificates", zap.Error(err))
		}
		zapLogger.Info("clients must trust the dev CA",
			zap.String("ca", filepath.Join(options.TLSDir, certgen.CACertFile)))
		err = server.ListenAndServeTLS(certFile, keyFile)
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start server", zap.Error(err))
	}
}

// tlsHosts lists the names the server certificate must cover.
func tlsHosts(addr string) []string {
	hosts := []string{"localhost", "127.0.0.1"}
	host, _, err := net.SplitHostPort(addr)
	if err == nil && host != "" && !slices.Contains(hosts, host) {
		hosts = append(hosts, host)
	}
	return hosts
}
