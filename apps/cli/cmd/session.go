package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/hitpad/packages/core/config"
	"github.com/abdul-hamid-achik/hitpad/packages/core/workspace"
	"github.com/abdul-hamid-achik/hitpad/packages/db"
	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// loadConfig reads the config file (or the defaults) and applies the global
// flags on top.
func loadConfig() (*config.Config, error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}

	overrides := &config.Config{
		Database:           databaseFlag,
		Proxy:              proxyFlag,
		DefaultEnvironment: envFlag,
	}
	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, withExitCode(ExitUsageError,
				fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err))
		}
		overrides.Timeout = int(d.Milliseconds())
	}
	if insecureFlag {
		overrides.ValidateSSL = config.BoolPtr(false)
	}
	if verboseFlag {
		overrides.Verbose = config.BoolPtr(true)
	}
	if noColorFlag {
		overrides.NoColor = config.BoolPtr(true)
	}
	return fileConfig.Merge(overrides), nil
}

// newLogger returns a logger writing to w in verbose mode and discarding
// otherwise.
func newLogger(cfg *config.Config, w io.Writer) *log.Logger {
	if !cfg.GetVerbose() {
		return log.New(io.Discard, "", 0)
	}
	return log.New(w, "hitpad: ", log.LstdFlags|log.Lmicroseconds)
}

func newClient(cfg *config.Config, logger *log.Logger) *http.Client {
	opts := []http.ClientOption{
		http.WithTimeout(cfg.TimeoutDuration()),
		http.WithFollowRedirects(cfg.GetFollowRedirects()),
		http.WithMaxRedirects(cfg.MaxRedirects),
		http.WithValidateSSL(cfg.GetValidateSSL()),
		http.WithDefaultHeaders(cfg.Headers),
		http.WithLogger(logger),
	}
	if cfg.Proxy != "" {
		opts = append(opts, http.WithProxy(cfg.Proxy))
	}
	return http.NewClient(opts...)
}

// session is what every command works with: the merged config, the shared
// client and a workspace backed by the environment store.
type session struct {
	cfg    *config.Config
	logger *log.Logger
	client *http.Client
	store  *db.Store
	ws     *workspace.Workspace
}

type sessionOptions struct {
	logger    *log.Logger
	clipboard workspace.Clipboard
}

// openSession builds a session and activates the configured environment.
// The caller must Close it.
func openSession(cfg *config.Config, logw io.Writer, so sessionOptions) (*session, error) {
	logger := so.logger
	if logger == nil {
		logger = newLogger(cfg, logw)
	}

	path := cfg.Database
	if path == "" {
		var err error
		if path, err = db.DefaultPath(); err != nil {
			return nil, withExitCode(ExitConfigError, err)
		}
	}
	store, err := db.Open(path)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}

	client := newClient(cfg, logger)
	opts := []workspace.Option{
		workspace.WithStore(store),
		workspace.WithLogger(logger),
	}
	if so.clipboard != nil {
		opts = append(opts, workspace.WithClipboard(so.clipboard))
	}
	ws, err := workspace.New(client, opts...)
	if err != nil {
		store.Close()
		return nil, withExitCode(ExitConfigError, err)
	}

	if cfg.DefaultEnvironment != "" {
		b, err := ws.EnvironmentByName(cfg.DefaultEnvironment)
		if err != nil {
			store.Close()
			return nil, withExitCode(ExitConfigError, err)
		}
		if err := ws.Activate(b.ID); err != nil {
			store.Close()
			return nil, withExitCode(ExitConfigError, err)
		}
		logger.Printf("using environment %q", b.Name)
	}

	return &session{cfg: cfg, logger: logger, client: client, store: store, ws: ws}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// activeName is the active environment name, or "" when none is active.
func (s *session) activeName() string {
	return s.ws.Active().String()
}
