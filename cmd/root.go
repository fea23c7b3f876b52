// Package cmd wires configuration, storage, the API client and the TUI
// behind the healthdesk command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"healthdesk/internal/api"
	"healthdesk/internal/config"
	"healthdesk/internal/logging"
	"healthdesk/internal/query"
	"healthdesk/internal/session"
	"healthdesk/internal/store"
	"healthdesk/internal/ui"
)

// flags are the persistent overrides shared by every command.
type flags struct {
	apiURL   string
	dataDir  string
	logLevel string
	theme    string
}

// env is everything a command runs on.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *store.Store
	session *session.Session
	cache   *query.Cache
	client  *api.Client
}

func (e *env) Close() {
	_ = e.logger.Sync()
	if err := e.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close store: %v\n", err)
	}
}

// loadConfig layers defaults, the config file, dotenv files, the
// environment and finally flags. interactive allows the first-run setup.
func loadConfig(f *flags, interactive bool) (*config.Config, error) {
	if _, err := config.LoadEnv(".env", ".env.local"); err != nil {
		return nil, err
	}

	dataDir := f.dataDir
	if dataDir == "" {
		dataDir = os.Getenv(config.EnvPrefix + "DATA_DIR")
	}
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	path := config.Path(dataDir)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dataDir
	if f.apiURL != "" {
		cfg.APIBaseURL = f.apiURL
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.theme != "" {
		cfg.Theme = f.theme
	}

	if cfg.APIBaseURL == "" && interactive && shouldRunOnboarding() {
		res, err := runOnboarding(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to run setup: %w", err)
		}
		if res.APIBaseURL != "" {
			cfg.APIBaseURL = res.APIBaseURL
			if res.DevOrgID != "" {
				cfg.DevOrgID = res.DevOrgID
			}
			if err := cfg.Save(path); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrNoAPIBaseURL) {
			return nil, fmt.Errorf("%w: pass --api-url, set %sAPI_BASE_URL or add api_base_url to %s", err, config.EnvPrefix, path)
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setup(ctx context.Context, f *flags, interactive bool) (*env, error) {
	cfg, err := loadConfig(f, interactive)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogPath(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	kv, err := store.Open(cfg.StorePath())
	if err != nil {
		logger.Error("failed to open store", zap.String("path", cfg.StorePath()), zap.Error(err))
		_ = logger.Sync()
		return nil, err
	}

	sess := session.New(kv, cfg.DevOrgID)
	if err := sess.Init(ctx); err != nil {
		logger.Error("failed to restore session", zap.Error(err))
		if cerr := kv.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close store: %w", cerr))
		}
		_ = logger.Sync()
		return nil, err
	}

	cache := query.New(cfg.StaleTime)
	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, sess,
		api.WithLogger(logger.Named("api")),
		api.WithUnauthorizedHandler(func() {
			if err := sess.Teardown(context.Background()); err != nil {
				logger.Error("failed to clear session", zap.Error(err))
			}
			cache.Clear()
		}),
	)

	logger.Debug("configuration loaded",
		zap.String("api", cfg.APIBaseURL),
		zap.String("data_dir", cfg.DataDir),
		zap.Bool("authenticated", sess.IsAuthenticated()))

	return &env{
		cfg:     cfg,
		logger:  logger,
		store:   kv,
		session: sess,
		cache:   cache,
		client:  client,
	}, nil
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "healthdesk",
		Short: "Terminal admin client for the healthcare API",
		Long: `healthdesk manages departments and patients of an organization
through the healthcare REST API.

Run without arguments to start the interactive interface.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), f, true)
			if err != nil {
				return err
			}
			defer e.Close()

			e.logger.Info("starting", zap.String("version", version))
			m := ui.New(ui.Deps{
				Config:  e.cfg,
				Session: e.session,
				Store:   e.store,
				Cache:   e.cache,
				Client:  e.client,
				Logger:  e.logger.Named("ui"),
			})
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("failed to run app: %w", err)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.apiURL, "api-url", "", "API base URL, e.g. https://api.example.com/api/v1")
	pf.StringVar(&f.dataDir, "data-dir", "", "directory for the store, preferences and logs (default ~/.healthdesk)")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&f.theme, "theme", "", "color theme: dark or light")

	root.AddCommand(newLoginCmd(f), newLogoutCmd(f), newWhoamiCmd(f))
	return root
}

// Execute runs the root command.
func Execute(version string) {
	if err := NewRootCmd(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
