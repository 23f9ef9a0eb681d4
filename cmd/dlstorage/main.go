// dlstorage reads and writes DLStorage containers from the command line.
//
// Containers are stored below a document root, by default in its "storage"
// subdirectory, either on the local filesystem or in an S3-compatible bucket.
// Settings come from dlstorage.conf in the document root unless --config
// names another file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/dlunire/dlstorage-go/catalog"
	"github.com/dlunire/dlstorage-go/config"
	"github.com/dlunire/dlstorage-go/storage"
	"github.com/dlunire/dlstorage-go/storagepath"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage marks command line mistakes; run reports them with exitUsage.
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries the state shared by all subcommands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg    config.Config
	logger *slog.Logger
	store  *storage.Storage

	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var configPath, root string

	flagSet := pflag.NewFlagSet("dlstorage", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", "", "path to configuration file (default: <root>/dlstorage.conf)")
	flagSet.StringVar(&root, "root", "", "document root (default: parent of the working directory)")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(stderr, flagSet)
		return exitUsage
	}
	if rest[0] == "help" {
		printUsage(stdout, flagSet)
		return exitOK
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "dlstorage: unknown command %q\n", rest[0])
		printUsage(stderr, flagSet)
		return exitUsage
	}

	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	defer a.close()

	if err := a.setup(configPath, flagSet.Changed("config"), root); err != nil {
		fmt.Fprintf(stderr, "dlstorage: %v\n", err)
		return exitError
	}

	if err := cmd(ctx, a, rest[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "dlstorage %s: %v\n", rest[0], err)
		if errors.Is(err, errUsage) {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}

// setup loads configuration and builds the logger, backend and catalog.
func (a *app) setup(configPath string, explicit bool, root string) error {
	cfg, err := loadConfig(configPath, explicit, root)
	if err != nil {
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	logger, closeLog, err := newLogger(cfg, a.stderr)
	if err != nil {
		return err
	}
	a.logger = logger
	a.closers = append(a.closers, closeLog)

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}

	opts := []storage.Option{
		storage.WithVersion(cfg.Version),
		storage.WithLogger(logger),
	}
	if cfg.Catalog != "" {
		path := cfg.Catalog
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.DataDir, path)
		}
		cat, err := catalog.Open(path)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, cat.Close)
		opts = append(opts, storage.WithCatalog(cat))
	}

	store, err := storage.New(backend, opts...)
	if err != nil {
		return err
	}
	a.store = store

	logger.Debug("dlstorage ready", "root", cfg.DataDir, "backend", cfg.Backend, "catalog", cfg.Catalog != "")
	return nil
}

// loadConfig reads the configuration file. Without --config a missing file
// falls back to defaults. The --root flag overrides datadir.
func loadConfig(path string, explicit bool, root string) (config.Config, error) {
	if !explicit {
		dir := root
		if dir == "" {
			dir = config.DefaultDataDir()
		}
		path = config.ConfigPath(dir)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		if explicit || !errors.Is(err, config.ErrConfigNotFound) {
			return cfg, err
		}
		cfg = config.DefaultConfig()
	}

	if root != "" {
		cfg.DataDir = root
	}
	return cfg, nil
}

// newLogger returns a text logger writing to cfg.LogFile, or to stderr when
// no log file is configured.
func newLogger(cfg config.Config, stderr io.Writer) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFile == "" {
		return slog.New(slog.NewTextHandler(stderr, opts)), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, opts)), f.Close, nil
}

func newBackend(cfg config.Config) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendS3:
		return storage.NewS3Backend(storage.S3Config{
			Bucket:     cfg.S3Bucket,
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Prefix:     cfg.S3Prefix,
			PathStyle:  cfg.S3PathStyle,
			StorageDir: cfg.StorageDir,
		})
	default:
		return storage.NewFileBackendWithResolver(&storagepath.Resolver{
			Root:       cfg.DataDir,
			StorageDir: cfg.StorageDir,
		})
	}
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprint(w, `dlstorage stores data in encoded DLStorage containers.

Usage:
  dlstorage [flags] <command> [arguments]

Commands:
  save NAME [--in FILE] [--key KEY] [--bare]    encode and store data (stdin by default)
  load NAME [--out FILE] [--key KEY] [--bare]   decode and print stored data
  inspect NAME [--bare]                         print the container header
  list                                          list stored containers
  rm NAME [--bare]                              delete a container

Flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
