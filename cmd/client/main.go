package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/atinyakov/CTFClient/internal/client/api"
	"github.com/atinyakov/CTFClient/internal/client/query"
	"github.com/atinyakov/CTFClient/internal/client/resource"
	"github.com/atinyakov/CTFClient/internal/client/service"
	"github.com/atinyakov/CTFClient/internal/client/storage"
	"github.com/atinyakov/CTFClient/internal/client/stream"
	"github.com/atinyakov/CTFClient/internal/config"
	"github.com/atinyakov/CTFClient/internal/db"
	"github.com/atinyakov/CTFClient/internal/logger"
)

var (
	version   string
	buildDate string
)

// navigator tracks the current REPL view so the session-expiry interceptor
// can send the user back to login. The interceptor runs on the stream
// goroutine while the REPL reads and moves the path.
type navigator struct {
	mu   sync.Mutex
	path string
}

func (n *navigator) Path() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

// Navigate is the interceptor's redirect.
func (n *navigator) Navigate(path string) {
	n.set(path)
	fmt.Println("\nsession expired, please login again")
}

func (n *navigator) set(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.path = path
}

// printToast renders cache notifications on stdout.
func printToast(t query.Toast) {
	if t.Description == "" {
		fmt.Printf("[%s] %s\n", t.Level, t.Title)
		return
	}
	fmt.Printf("[%s] %s: %s\n", t.Level, t.Title, t.Description)
}

// openBackend picks PostgreSQL when a DSN is configured, files otherwise.
func openBackend(ctx context.Context, opts *config.Options) (storage.Backend, func(), error) {
	if opts.StateDSN == "" {
		b, err := storage.NewFileBackend(opts.StateDir)
		return b, func() {}, err
	}
	conn, err := db.InitPostgres(ctx, opts.StateDSN)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewSQLBackend(conn, storage.DefaultTable), func() { _ = conn.Close() }, nil
}

func main() {
	_ = godotenv.Load()
	opts := config.Parse()

	fmt.Printf("CTF Client\nVersion: %s\nBuild Date: %s\n", orNA(version), orNA(buildDate))

	if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0o700); err != nil {
		log.Fatal(err)
	}
	lcfg := logger.ConfigFromEnv()
	lcfg.Level = opts.LogLevel
	lcfg.File = opts.LogFile
	zl, err := logger.Init(lcfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nav := &navigator{path: "/"}
	apiOpts := []api.Option{
		api.WithTimeout(opts.Timeout),
		api.WithLogger(zl),
		api.WithSessionExpiry(nav, api.DefaultLoginPath),
	}
	if opts.CAFile != "" {
		apiOpts = append(apiOpts, api.WithCA(opts.CAFile))
	}
	client, err := api.New(opts.APIURL, apiOpts...)
	if err != nil {
		zl.Fatal("failed to build API client", zap.Error(err))
	}

	backend, closeBackend, err := openBackend(ctx, opts)
	if err != nil {
		zl.Fatal("failed to open client state", zap.Error(err))
	}
	defer closeBackend()

	users, writer, err := storage.NewUserStore(ctx, backend, zl)
	if err != nil {
		zl.Fatal("failed to load user store", zap.Error(err))
	}
	notes, err := storage.NewNotificationStore(ctx, backend, zl)
	if err != nil {
		zl.Fatal("failed to load notification store", zap.Error(err))
	}
	audio, err := storage.NewAudioStore(ctx, backend, zl)
	if err != nil {
		zl.Fatal("failed to load audio store", zap.Error(err))
	}

	q := query.New(query.WithLogger(zl), query.WithNotifier(query.NotifierFunc(printToast)))
	defer q.Close()
	q.StartCollector(ctx, time.Minute, query.DefaultRetention)

	sh := &shell{
		ctx:    ctx,
		svc:    service.New(q, resource.New(client), writer, zl),
		nav:    nav,
		users:  users,
		notes:  notes,
		audio:  audio,
		stream: stream.New(client, opts.StreamPath, notes, zl),
		log:    zl,
	}
	if u, ok := users.Current(); ok {
		fmt.Printf("Last signed in as %s <%s>\n", u.Name, u.Email)
	}
	sh.run()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
