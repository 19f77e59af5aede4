// Package cli is a local chat driver for the notekeeper engine: it stands in
// for the excluded transport layer, translating typed commands into intents
// and rendering the engine's responses. All invariants live in the engine;
// this package is I/O plumbing only.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/auth"
	"github.com/dmitrijs2005/notekeeper/internal/backup"
	"github.com/dmitrijs2005/notekeeper/internal/config"
	"github.com/dmitrijs2005/notekeeper/internal/conversation"
	"github.com/dmitrijs2005/notekeeper/internal/credstore"
	"github.com/dmitrijs2005/notekeeper/internal/engine"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/repositories/sections"
	"github.com/dmitrijs2005/notekeeper/internal/session"
)

type App struct {
	cfg    *config.Config
	engine *engine.Engine
	logger logging.Logger
	reader *bufio.Reader

	// userID is the acting identity for this local session. The real chat
	// transport supplies one per peer; locally there is exactly one.
	userID     int64
	ownerToken string

	// lastPrompt is the open question of the in-flight flow, kept so the
	// REPL can re-render it after a validation error.
	lastPrompt *conversation.Prompt
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	dataDir := cfg.DataDir
	if filepath.IsAbs(dataDir) {
		if err := os.MkdirAll(dataDir, 0o770); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dataDir, err)
		}
	} else {
		var err error
		if dataDir, err = filex.EnsureSubDir(dataDir); err != nil {
			return nil, err
		}
	}

	usersFile := cfg.UsersFile
	if !filepath.IsAbs(usersFile) {
		usersFile = filepath.Join(dataDir, usersFile)
	}

	creds := credstore.New(usersFile, cfg.BcryptCost, logger)
	sessions := session.NewManager()

	repo, err := newSectionRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	backupSvc := backup.NewService(cfg, logger)

	app := &App{
		cfg:    cfg,
		engine: engine.New(cfg, creds, sessions, repo, backupSvc, logger),
		logger: logger,
		reader: bufio.NewReader(os.Stdin),
		userID: 1,
	}

	// The local user acts as the owner when one is configured; mint the
	// marker the privileged intents expect.
	if cfg.OwnerID != 0 {
		app.userID = cfg.OwnerID
		token, err := auth.MintOwnerToken(cfg.OwnerID, []byte(cfg.SecretKey), 24*time.Hour)
		if err != nil {
			return nil, fmt.Errorf("mint owner token: %w", err)
		}
		app.ownerToken = token
	}

	return app, nil
}

func newSectionRepository(ctx context.Context, cfg *config.Config) (sections.Repository, error) {
	switch cfg.SectionBackend {
	case "", "memory":
		return sections.NewMemoryRepository(), nil
	case "sqlite":
		dsn := cfg.DatabaseDSN
		if dsn == "" {
			dsn = filepath.Join(cfg.DataDir, "sections.db")
		}
		db, err := sections.OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return sections.NewSQLiteRepository(db), nil
	case "postgres":
		db, err := sections.OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return sections.NewPostgresRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown section backend %q", cfg.SectionBackend)
	}
}

func (a *App) Run(ctx context.Context) {
	a.runREPL(ctx)
}
