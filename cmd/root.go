package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/itrack/internal/auth"
	"github.com/joescharf/itrack/internal/models"
	"github.com/joescharf/itrack/internal/output"
	"github.com/joescharf/itrack/internal/state"
	"github.com/joescharf/itrack/internal/store"
	"github.com/joescharf/itrack/internal/tracker"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "itrack",
	Short: "Issue tracker with a forward-only status workflow",
	Long: `itrack tracks projects and the issues filed against them.

Issues move Open -> In Progress -> Done and projects move
Active -> On Hold -> Completed. Skipping a step or moving backwards
is rejected everywhere: CLI, TUI, REST API and MCP server.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/itrack/config.yaml)")
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ITRACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	defaultConfigDir, _ := configDirFunc()
	setDefaults(defaultConfigDir)

	// Config file is optional.
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key with its default, rooted at dir.
func setDefaults(dir string) {
	viper.SetDefault("state_dir", dir)
	viper.SetDefault("db.driver", store.DriverSQLite)
	viper.SetDefault("db.path", filepath.Join(dir, "itrack.db"))
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("user.id", "")
	viper.SetDefault("user.email", "")
	viper.SetDefault("page_size", 8)
	viper.SetDefault("port", 8080)
	viper.SetDefault("auth.mode", auth.ModeLocal)
	viper.SetDefault("auth.oidc.issuer_url", "")
	viper.SetDefault("auth.oidc.client_id", "")
	viper.SetDefault("auth.oidc.email_claim", "email")
	viper.SetDefault("contact.webhook_url", "")
	viper.SetDefault("contact.timeout", 10*time.Second)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// The store opens lazily so config and version work without a database.
}

// rootRun handles `itrack` with no subcommand.
func rootRun(cmd *cobra.Command) error {
	if _, err := getStore(); err != nil {
		return cmd.Help()
	}
	return statusRun()
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	ctx := context.Background()
	s, err := store.Open(ctx, store.Config{
		Driver: viper.GetString("db.driver"),
		Path:   viper.GetString("db.path"),
		DSN:    viper.GetString("db.dsn"),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// getService returns a tracker.Service over the shared store.
func getService() (*tracker.Service, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	return tracker.NewService(s), nil
}

// configuredUser returns the identity from user.id and user.email, which may
// be incomplete.
func configuredUser() auth.Identity {
	return auth.Identity{
		Subject: strings.TrimSpace(viper.GetString("user.id")),
		Email:   strings.TrimSpace(viper.GetString("user.email")),
	}
}

// currentUser returns the configured identity or an error naming the keys
// to set.
func currentUser() (auth.Identity, error) {
	id := configuredUser()
	if !id.Valid() {
		return auth.Identity{}, fmt.Errorf("%w: set user.email and user.id in the config file or ITRACK_USER_EMAIL and ITRACK_USER_ID", auth.ErrUnauthenticated)
	}
	return id, nil
}

func stateFile() *state.File {
	return state.New(viper.GetString("state_dir"))
}

// currentProject resolves ref, or the project last opened with
// `itrack project open` when ref is empty.
func currentProject(ctx context.Context, svc *tracker.Service, ref string) (*models.Project, error) {
	if ref != "" {
		return svc.ResolveProject(ctx, ref)
	}

	sf := stateFile()
	id, err := sf.CurrentProject()
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errors.New("no project selected: pass --project or run 'itrack project open <name>'")
	}

	p, err := svc.GetProject(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		_ = sf.SetCurrentProject("")
		return nil, errors.New("the selected project no longer exists: run 'itrack project open <name>'")
	}
	if err != nil {
		return nil, err
	}
	ui.Notice("Using project %s", p.Name)
	return p, nil
}

// projectNames maps project IDs to names for display.
func projectNames(ctx context.Context, svc *tracker.Service) map[string]string {
	names := make(map[string]string)
	projects, err := svc.ListProjects(ctx)
	if err != nil {
		return names
	}
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	return names
}

// shortID returns a truncated ULID for display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// normalizeStatus maps user input like "in-progress" or "on_hold" onto the
// canonical status with the same letters. Unknown input is returned as is
// so the service can reject it.
func normalizeStatus[S ~string](raw string, valid []S) S {
	clean := strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(raw))
	for _, s := range valid {
		if strings.EqualFold(string(s), clean) {
			return s
		}
	}
	return S(raw)
}
