package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/agenthands/weaver/internal/config"
	"github.com/agenthands/weaver/internal/core"
	"github.com/agenthands/weaver/internal/driver"
	"github.com/agenthands/weaver/internal/llm"
	"github.com/agenthands/weaver/internal/observability"
	"github.com/agenthands/weaver/internal/schema"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// app carries what PersistentPreRunE resolved to the subcommands.
type app struct {
	cfgFile  string
	logLevel string

	cfg     *config.Config
	logger  *zap.Logger
	closers []io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "weaver",
		Short:         "Weaver stores experiences as a schema-driven knowledge graph in Neo4j.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is $CONFIG_PATH or "+config.DefaultPath+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level")
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	root.AddCommand(
		newServeCmd(a),
		newSchemaCmd(a),
		newImportCmd(a),
		newSearchCmd(a),
		newCypherCmd(a),
		newWeaveCmd(a),
	)
	return root
}

func (a *app) init(logOut io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, path, err := config.Resolve(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.logger = observability.Initialize(cfg.Log, zapcore.Lock(zapcore.AddSync(logOut)))
	if path == "" {
		a.logger.Debug("No config file found, using defaults")
	} else {
		a.logger.Debug("Loaded config", zap.String("path", path))
	}
	return nil
}

func (a *app) registry() (*schema.Registry, error) {
	return schema.LoadFile(a.cfg.Schema.Path)
}

// weaver connects to Neo4j and builds the providers. The LLM is optional:
// without one, weave_text reports that extraction is unavailable.
func (a *app) weaver(ctx context.Context) (*core.Weaver, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}

	embedClient, err := llm.NewEmbedder(ctx, a.cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	a.track(embedClient)
	embedder := llm.NewSafeEmbedder(embedClient,
		llm.WithRateLimit(a.cfg.Embedding.RateLimit, a.cfg.Embedding.Burst),
		llm.WithTimeout(time.Duration(a.cfg.Embedding.TimeoutSeconds)*time.Second),
		llm.WithLogger(a.logger.Named("embedder")))

	var llmClient llm.LLMClient
	if a.cfg.LLM.Provider != "" {
		llmClient, err = llm.NewClient(ctx, a.cfg.LLM)
		if err != nil {
			a.logger.Warn("LLM unavailable, text extraction disabled", zap.Error(err))
			llmClient = nil
		} else {
			a.track(llmClient)
		}
	}

	drv, err := driver.NewNeo4jDriver(ctx, a.cfg.Neo4j.URI, a.cfg.Neo4j.User, a.cfg.Neo4j.Password,
		driver.WithDatabase(a.cfg.Neo4j.Database),
		driver.WithLogger(a.logger.Named("neo4j")))
	if err != nil {
		a.close(ctx, nil)
		return nil, err
	}

	return core.NewWeaver(drv, reg, llmClient, embedder, a.cfg, a.logger), nil
}

func (a *app) track(v any) {
	if c, ok := v.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
}

func (a *app) close(ctx context.Context, w *core.Weaver) {
	if w != nil {
		if err := w.Close(ctx); err != nil {
			a.logger.Warn("Failed to close driver", zap.Error(err))
		}
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
	a.closers = nil
}

// withWeaver runs fn against a connected Weaver and closes it afterwards.
func (a *app) withWeaver(ctx context.Context, fn func(*core.Weaver) error) error {
	w, err := a.weaver(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx), w)
	return fn(w)
}
