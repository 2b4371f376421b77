package supervisor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/KingdomFirst/Bulldozer-sub001/config"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/kinds"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/progress"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/service"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/stream"
	"github.com/KingdomFirst/Bulldozer-sub001/source/csvsource"
	"github.com/KingdomFirst/Bulldozer-sub001/source/xlsxsource"
	"github.com/KingdomFirst/Bulldozer-sub001/target"
	"github.com/KingdomFirst/Bulldozer-sub001/target/gormdb"
	"github.com/KingdomFirst/Bulldozer-sub001/target/postgres"
	"github.com/KingdomFirst/Bulldozer-sub001/target/snowflake"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/log/logrusadapter"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"
	_ "github.com/snowflakedb/gosnowflake"
)

var ErrNoSource = errors.New("no source file for kind")

type source interface {
	stream.Source
	Close() error
}

// Result is the outcome of one kind
type Result struct {
	Counts progress.Counts
	Errors []progress.Category
	// Summary lists the row errors by category
	Summary string
}

type Supervisor struct{}

func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

// Run imports the configured kinds, restricted to kindNames when given
func (s *Supervisor) Run(ctx context.Context, configFile string, kindNames []string) error {
	// handle interrupt signal
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		select {
		case <-c:
			logrus.Warnln("interrupted, stopping after the current chunk")
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, err := config.GetConf(config.DefaultConfig, configFile)
	if err != nil {
		return err
	}
	if len(kindNames) > 0 {
		cfg.Import.Kinds = kindNames
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validate config error: %w", err)
	}

	initLogger(cfg.Logger)

	store, err := openStore(ctx, cfg.Target)
	if err != nil {
		return fmt.Errorf("error creating %s store: %w", cfg.Target.Backend, err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logrus.WithError(err).Warnln("error closing store")
		}
	}()
	logrus.Infoln(store)

	metrics := progress.NewMetrics()
	results, err := Import(ctx, cfg, store, kinds.Default())
	for _, r := range results {
		metrics.Observe(r.Counts, r.Errors)
	}
	if cfg.Metrics.Textfile != "" {
		if werr := metrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logrus.WithError(werr).Warnln("error writing metrics")
		}
	}
	return err
}

// Import runs one importer per selected kind, in import order, under a shared run id.
// The results of the kinds that ran are returned even when a later kind fails.
func Import(ctx context.Context, cfg *config.Config, store target.Store, registry *kinds.Registry) ([]Result, error) {
	selected, err := registry.Select(cfg.Import.Kinds)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx, registry.Specs()...); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	explicit := len(cfg.Import.Kinds) > 0

	var results []Result
	for _, kind := range selected {
		src, err := openSource(cfg.Import, kind)
		if errors.Is(err, ErrNoSource) && !explicit {
			logrus.WithField("kind", kind.Name).Debugln("no source file, skipping")
			continue
		} else if err != nil {
			return results, err
		}
		result, err := importKind(ctx, cfg, store, registry, kind, src, runID)
		if cerr := src.Close(); cerr != nil {
			logrus.WithError(cerr).WithField("kind", kind.Name).Warnln("error closing source")
		}
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func importKind(ctx context.Context, cfg *config.Config, store target.Store, registry *kinds.Registry, kind *kinds.Kind, src source, runID string) (Result, error) {
	log := progress.NewLog(logrus.Fields{"kind": kind.Name, "run": runID})
	imp, err := service.NewImporter(store, registry, kind, log, service.Options{
		Prefix:          cfg.Import.InstancePrefix,
		ChunkSize:       cfg.ChunkSizeFor(kind.Name),
		Workers:         cfg.Import.Workers,
		DisableAuditing: cfg.Import.DisableAuditing,
		RunID:           runID,
	})
	if err != nil {
		return Result{Counts: progress.Counts{Kind: kind.Name}}, err
	}
	counts, err := imp.Run(ctx, src)
	result := Result{Counts: *counts, Errors: log.Errors(), Summary: log.Summary()}
	fields := logrus.Fields{
		"kind":      kind.Name,
		"processed": counts.Processed,
		"imported":  counts.Imported,
		"duplicate": counts.SkippedDuplicate,
		"invalid":   counts.SkippedInvalid,
		"linked":    counts.Linked,
	}
	if result.Summary != "" {
		logrus.WithFields(fields).Warnln("row errors:\n" + result.Summary)
	}
	logrus.WithFields(fields).Infoln(counts)
	return result, err
}

// openSource finds <kind>.csv or <kind>.xlsx in the source directory
func openSource(cfg config.ImportCfg, kind *kinds.Kind) (source, error) {
	base := filepath.Join(cfg.SourceDir, kind.Name)
	if path := base + ".csv"; fileExists(path) {
		return csvsource.Open(path, cfg.Encoding, kind.KeyColumn)
	}
	if path := base + ".xlsx"; fileExists(path) {
		return xlsxsource.Open(path, kind.KeyColumn)
	}
	return nil, fmt.Errorf("%w: %s.csv or %s.xlsx", ErrNoSource, base, base)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// initLogger sets up logrus from the config
func initLogger(cfg config.LoggerCfg) {
	if cfg.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetReportCaller(true)
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warnln("invalid log level in config", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
}

func openStore(ctx context.Context, cfg config.TargetCfg) (target.Store, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := initPgxPool(ctx, cfg.Connection)
		if err != nil {
			return nil, err
		}
		schema := cfg.Schema
		if schema == "" {
			schema = "public"
		}
		return postgres.NewStore(pool, schema), nil
	case config.BackendGorm:
		return gormdb.Open(cfg.Connection)
	case config.BackendSnowflake:
		sfConn, err := initSnowflakeConnection(cfg)
		if err != nil {
			return nil, err
		}
		return snowflake.NewStore(ctx, sfConn, cfg.Database, cfg.Schema)
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownBackend, cfg.Backend)
	}
}

func initPgxPool(ctx context.Context, connection string) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(connection)
	if err != nil {
		return nil, err
	}
	connConfig.ConnConfig.Logger = logrusadapter.NewLogger(logrus.StandardLogger())
	connConfig.ConnConfig.LogLevel = pgx.LogLevelWarn
	pool, err := pgxpool.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres connection error: %w", err)
	}
	return pool, nil
}

func initSnowflakeConnection(cfg config.TargetCfg) (*sql.DB, error) {
	joinChar := "?"
	if strings.Contains(cfg.Connection, "?") {
		joinChar = "&"
	}
	connStr := fmt.Sprintf("%s%sclient_session_keep_alive=true", cfg.Connection, joinChar)
	sf, err := sql.Open("snowflake", connStr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to snowflake: %w", err)
	}
	return sf, nil
}
