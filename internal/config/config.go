// Package config provides functionality for managing configuration options
// for the client and the dev server using command-line flags, a JSON config
// file and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"
)

// Options holds the configuration values of the client.
type Options struct {
	// APIURL is the base URL of the REST API, including the /api/v1 prefix.
	APIURL string `json:"api_url"`

	// StreamPath is the server-sent events endpoint, relative to APIURL.
	StreamPath string `json:"stream_path"`

	// StateDir holds the persisted client stores when StateDSN is empty.
	StateDir string `json:"state_dir"`

	// StateDSN, when set, persists client stores in PostgreSQL instead of files.
	StateDSN string `json:"state_dsn"`

	// CAFile is an optional PEM bundle trusted in addition to the system roots.
	CAFile string `json:"ca_file"`

	// Timeout bounds every HTTP request.
	Timeout time.Duration `json:"-"`

	// LogLevel is passed to the logger.
	LogLevel string `json:"log_level"`

	// LogFile is where the REPL writes its logs.
	LogFile string `json:"log_file"`

	// Config is the path to the config file.
	Config string `json:"-"`
}

// ServerOptions holds the configuration values of the dev server.
type ServerOptions struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `json:"addr"`

	// JWTSecret signs session cookies.
	JWTSecret string `json:"jwt_secret"`

	// AdminEmail and AdminPassword seed the first admin account.
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`

	// TLSDir, when set, makes the server speak HTTPS with a certificate
	// issued by a local CA kept in this directory.
	TLSDir string `json:"tls_dir"`

	// Config is the path to the config file.
	Config string `json:"-"`
}

// Parse parses os.Args into client options, exiting on error.
func Parse() *Options {
	opts, err := ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	return opts
}

// ParseArgs parses the given arguments and environment variables to set
// client configuration values. Precedence: env > config file > flags.
func ParseArgs(args []string) (*Options, error) {
	options := &Options{}
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.StringVar(&options.APIURL, "url", "http://localhost:8888/api/v1", "API base URL")
	fs.StringVar(&options.StreamPath, "stream", "/sse/notifications", "notification stream path")
	fs.StringVar(&options.StateDir, "state", ".ctfclient", "directory for persisted client state")
	fs.StringVar(&options.StateDSN, "d", "", "postgres DSN for persisted client state")
	fs.StringVar(&options.CAFile, "ca", "", "path to extra CA cert")
	fs.DurationVar(&options.Timeout, "timeout", 10*time.Second, "request timeout")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&options.LogFile, "log-file", "", "log file (default <state>/client.log)")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := loadFile(&options.Config, options); err != nil {
		return nil, err
	}

	if v := os.Getenv("CTF_API_URL"); v != "" {
		options.APIURL = v
	}
	if v := os.Getenv("CTF_STATE_DIR"); v != "" {
		options.StateDir = v
	}
	if v := os.Getenv("CTF_STATE_DSN"); v != "" {
		options.StateDSN = v
	}
	if v := os.Getenv("CTF_CA_FILE"); v != "" {
		options.CAFile = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		options.LogLevel = v
	}

	if options.LogFile == "" {
		options.LogFile = options.StateDir + "/client.log"
	}
	return options, nil
}

// ParseServer parses the given arguments into dev server options.
func ParseServer(args []string) (*ServerOptions, error) {
	options := &ServerOptions{}
	fs := flag.NewFlagSet("devserver", flag.ContinueOnError)
	fs.StringVar(&options.Addr, "a", "localhost:8888", "run on ip:port server")
	fs.StringVar(&options.JWTSecret, "secret", "", "session signing secret")
	fs.StringVar(&options.AdminEmail, "admin-email", "admin@ctf.local", "seed admin email")
	fs.StringVar(&options.AdminPassword, "admin-password", "admin123", "seed admin password")
	fs.StringVar(&options.TLSDir, "tls-dir", "", "serve HTTPS with a dev CA kept in this directory")
	fs.StringVar(&options.Config, "config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := loadFile(&options.Config, options); err != nil {
		return nil, err
	}

	if dir := os.Getenv("CTF_TLS_DIR"); dir != "" {
		options.TLSDir = dir
	}
	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Addr = serverAddress
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		options.JWTSecret = secret
	}
	if options.JWTSecret == "" {
		return nil, fmt.Errorf("session secret is required (-secret or JWT_SECRET)")
	}
	return options, nil
}

// loadFile overlays the JSON config file onto v. A missing file is not an error.
func loadFile(path *string, v any) error {
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		*path = configPath
	}
	if *path == "" {
		return nil
	}
	if _, err := os.Stat(*path); err != nil {
		return nil
	}
	data, err := os.ReadFile(*path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}
