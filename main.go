package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"duet/internal/config"
	"duet/internal/db"
	"duet/internal/models"
	"duet/internal/provider"
	"duet/internal/session"
	"duet/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.toml (default ~/.config/duet/config.toml)")
	importPath := flag.String("import", "", "import an exported chat JSON file before starting")
	exportDir := flag.String("export-dir", ".", "directory chat exports are written to")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	store, err := db.Open(cfg.DBPath, db.WithDefaultSettings(cfg.DefaultSettings()), db.WithDefaultTheme(config.DefaultTheme))
	if err != nil {
		return err
	}
	defer store.Close()

	labels := make(map[models.ModelID]string, len(models.AllModels))
	for _, id := range models.AllModels {
		labels[id] = cfg.Model(id).Label
	}

	sess, err := session.New(store, session.Options{
		Generation: provider.Options{
			Temperature: cfg.Generation.Temperature,
			MaxTokens:   cfg.Generation.MaxTokens,
		},
		Timeout:         cfg.RequestTimeout(),
		DeactivateLoser: cfg.Selection.DeactivateLoser,
		CharsPerToken:   cfg.Estimator.CharsPerToken,
		Seed:            cfg.Seed,
		Labels:          labels,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	if *importPath != "" {
		chat, err := sess.ImportFile(*importPath)
		if err != nil {
			return fmt.Errorf("import %s: %w", *importPath, err)
		}
		logger.Info("chat imported", "chat", chat.ID, "path", *importPath)
	}

	if _, err := ui.NewProgram(sess, *exportDir).Run(); err != nil {
		return err
	}
	return nil
}

// openLog sends structured logs to path. The TUI owns the terminal, so
// nothing is written to stderr while it runs.
func openLog(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewJSONHandler(io.Discard, nil)), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("log: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("log: open %s: %w", path, err)
	}
	h := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(h), func() { _ = f.Close() }, nil
}
