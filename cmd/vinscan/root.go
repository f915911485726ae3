package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/vinscan/internal/common"
	"github.com/joseph-ayodele/vinscan/internal/extract"
	"github.com/joseph-ayodele/vinscan/internal/ocr"
	"github.com/joseph-ayodele/vinscan/internal/repository"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	inMemory  bool
)

var rootCmd = &cobra.Command{
	Use:   "vinscan",
	Short: "Extract vehicle identification numbers from photos",
	Long: `vinscan reads VIN plates and stickers from photos using OCR, validates the
candidates and reports the best match with diagnostics.

Commands cover single images, whole directories (with an XLSX report), a
directory watcher for freshly dropped photos and a gRPC service.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./vinscan.yaml or ~/.vinscan/vinscan.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override: text or json")
	rootCmd.PersistentFlags().BoolVar(&inMemory, "inmem", false, "record extractions in an in-memory SQLite database")
}

// app is the per-invocation wiring shared by every command.
type app struct {
	cfg    *common.Config
	logger *slog.Logger
}

func loadApp() (*app, error) {
	cfg, err := common.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// stdout carries command output; logs go to stderr
	opts := &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) engine() (ocr.Engine, error) {
	return ocr.NewEngine(a.cfg.OCR, a.logger)
}

func (a *app) extractor(records repository.ExtractionRepository) (*extract.Service, error) {
	engine, err := a.engine()
	if err != nil {
		return nil, err
	}
	var opts []extract.ServiceOption
	if records != nil {
		opts = append(opts, extract.WithRecorder(records))
	}
	return extract.NewService(engine, extract.OptionsFrom(a.cfg.Extraction), a.logger, opts...), nil
}

// openAudit opens the configured audit log, or an in-memory SQLite one when
// --inmem is set or forceInMemory is true and nothing is configured. It returns
// nil, nil when auditing is off.
func (a *app) openAudit(ctx context.Context, forceInMemory bool) (*repository.DB, error) {
	dbCfg := repository.ConfigFrom(a.cfg.Database)
	switch {
	case inMemory:
		dbCfg = repository.Config{Driver: common.DriverSQLite, DSN: ":memory:"}
	case dbCfg.Driver == "" && forceInMemory:
		dbCfg = repository.Config{Driver: common.DriverSQLite, DSN: ":memory:"}
	case dbCfg.Driver == "":
		return nil, nil
	}

	db, err := repository.Open(ctx, dbCfg, a.logger)
	if err != nil {
		return nil, err
	}
	if err := db.HealthCheck(ctx, a.cfg.Database.DialTimeout); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
