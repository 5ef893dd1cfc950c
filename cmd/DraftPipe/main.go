package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/BTreeMap/DraftPipe/internal/api"
	"github.com/BTreeMap/DraftPipe/internal/genai"
	"github.com/BTreeMap/DraftPipe/internal/models"
	"github.com/BTreeMap/DraftPipe/internal/store"
	"github.com/BTreeMap/DraftPipe/internal/template"
	"github.com/BTreeMap/DraftPipe/internal/util"
	"github.com/BTreeMap/DraftPipe/internal/workflow"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for DraftPipe state data
	DefaultStateDir = "/var/lib/draftpipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "draftpipe.db"
	// DefaultAPIAddr is the default API listen address
	DefaultAPIAddr = ":8080"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if *flags.seedTemplates {
		if err := seedTemplates(st); err != nil {
			slog.Error("Failed to seed starter templates", "error", err)
			os.Exit(1)
		}
	}

	if err := seedProfile(st, flags); err != nil {
		slog.Error("Failed to seed sender profile", "error", err)
		os.Exit(1)
	}

	deterministic, creative, err := buildGenAIClients(config, flags)
	if err != nil {
		slog.Error("Failed to create GenAI clients", "error", err)
		os.Exit(1)
	}

	wf := workflow.New(deterministic, creative, st)
	server := api.NewServer(wf, st, buildAPIOptions(flags)...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping DraftPipe with configured modules")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir,
		"dsn_set", *flags.dbDSN != "",
		"api_addr", *flags.apiAddr,
		"model", *flags.model,
		"seed_templates", *flags.seedTemplates)
	if err := server.Run(ctx); err != nil {
		slog.Error("DraftPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("DraftPipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	DbDSN         string
	StateDir      string
	OpenAIKey     string
	OpenAIBaseURL string
	Model         string
	APIAddr       string
	SeedTemplates bool

	DeterministicTemp float64
	CreativeTemp      float64
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDSN         *string
	openaiKey     *string
	openaiBaseURL *string
	model         *string
	apiAddr       *string
	seedTemplates *bool

	seedProfileUser  *string
	seedProfileName  *string
	seedProfileTitle *string
	seedProfileOrg   *string
	seedProfileEmail *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DbDSN:             os.Getenv("DATABASE_URL"),
		StateDir:          os.Getenv("DRAFTPIPE_STATE_DIR"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		Model:             os.Getenv("DRAFTPIPE_MODEL"),
		APIAddr:           os.Getenv("API_ADDR"),
		SeedTemplates:     util.ParseBoolEnv("DRAFTPIPE_SEED_TEMPLATES", true),
		DeterministicTemp: util.ParseFloatEnv("DRAFTPIPE_DETERMINISTIC_TEMPERATURE", genai.DeterministicTemperature),
		CreativeTemp:      util.ParseFloatEnv("DRAFTPIPE_CREATIVE_TEMPERATURE", genai.CreativeTemperature),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No DRAFTPIPE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("DRAFTPIPE_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DbDSN == "" {
		config.DbDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DbDSN)
	}

	if config.APIAddr == "" {
		config.APIAddr = DefaultAPIAddr
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", os.Getenv("DATABASE_URL") != "",
		"DRAFTPIPE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_BASE_URL_SET", config.OpenAIBaseURL != "",
		"DRAFTPIPE_MODEL", config.Model,
		"API_ADDR", config.APIAddr,
		"DRAFTPIPE_SEED_TEMPLATES", config.SeedTemplates)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for DraftPipe data (overrides $DRAFTPIPE_STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", config.DbDSN, "database DSN, SQLite file path or PostgreSQL URL (overrides $DATABASE_URL)"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiBaseURL: flag.String("openai-base-url", config.OpenAIBaseURL, "OpenAI-compatible API base URL (overrides $OPENAI_BASE_URL)"),
		model:         flag.String("model", config.Model, "chat model for all agent calls (overrides $DRAFTPIPE_MODEL)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		seedTemplates: flag.Bool("seed-templates", config.SeedTemplates, "insert starter email templates on startup (overrides $DRAFTPIPE_SEED_TEMPLATES)"),

		seedProfileUser:  flag.String("seed-profile-user", "", "user id to upsert a sender profile for on startup"),
		seedProfileName:  flag.String("seed-profile-name", "", "sender name for the seeded profile"),
		seedProfileTitle: flag.String("seed-profile-title", "", "sender title for the seeded profile"),
		seedProfileOrg:   flag.String("seed-profile-org", "", "sender organization for the seeded profile"),
		seedProfileEmail: flag.String("seed-profile-email", "", "sender email for the seeded profile"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"openaiBaseURLSet", *flags.openaiBaseURL != "",
		"model", *flags.model,
		"apiAddr", *flags.apiAddr,
		"seedTemplates", *flags.seedTemplates)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DbDSN && config.DbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// openStore selects and opens the storage backend based on the DSN shape.
func openStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// seedTemplates upserts the starter template set so a fresh database can
// serve skeletons for the common intents.
func seedTemplates(st store.Store) error {
	for _, tmpl := range template.SeedTemplates {
		if err := st.UpsertTemplate(tmpl); err != nil {
			return err
		}
	}
	slog.Debug("Starter templates seeded", "count", len(template.SeedTemplates))
	return nil
}

// seedProfile upserts a sender profile from the -seed-profile-* flags.
// Nothing happens unless at least one profile field is set.
func seedProfile(st store.Store, flags Flags) error {
	profile := map[string]any{}
	if *flags.seedProfileName != "" {
		profile["name"] = *flags.seedProfileName
	}
	if *flags.seedProfileTitle != "" {
		profile["title"] = *flags.seedProfileTitle
	}
	if *flags.seedProfileOrg != "" {
		profile["organization"] = *flags.seedProfileOrg
	}
	if *flags.seedProfileEmail != "" {
		profile["email"] = *flags.seedProfileEmail
	}
	if len(profile) == 0 {
		return nil
	}

	userID := *flags.seedProfileUser
	if userID == "" {
		userID = models.DefaultUserID
	}
	if err := st.UpsertProfile(userID, profile); err != nil {
		return err
	}
	slog.Debug("Sender profile seeded", "user_id", userID, "fields", len(profile))
	return nil
}

// buildGenAIClients constructs the deterministic and creative GenAI clients.
// Parsing, classification, validation, and memory use the deterministic
// client; drafting uses the creative one.
func buildGenAIClients(config Config, flags Flags) (*genai.Client, *genai.Client, error) {
	base := []genai.Option{}
	if *flags.openaiKey != "" {
		base = append(base, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiBaseURL != "" {
		base = append(base, genai.WithBaseURL(*flags.openaiBaseURL))
	}
	if *flags.model != "" {
		base = append(base, genai.WithModel(*flags.model))
	}

	detOpts := append(append([]genai.Option{}, base...), genai.WithTemperature(config.DeterministicTemp))
	creOpts := append(append([]genai.Option{}, base...), genai.WithTemperature(config.CreativeTemp))

	deterministic, err := genai.NewClient(detOpts...)
	if err != nil {
		return nil, nil, err
	}
	creative, err := genai.NewClient(creOpts...)
	if err != nil {
		return nil, nil, err
	}
	return deterministic, creative, nil
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
