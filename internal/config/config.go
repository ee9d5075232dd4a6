package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/hintprefs/internal/config/loader"
)

// Storage backends.
const (
	BackendTOML     = "toml"
	BackendYAML     = "yaml"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// Backends lists every supported storage backend.
var Backends = []string{BackendTOML, BackendYAML, BackendMemory, BackendPostgres, BackendS3}

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "HINTPREFS_"

// Config is the application configuration.
type Config struct {
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Logging  LoggingConfig  `toml:"logging"`
	Watch    WatchConfig    `toml:"watch"`
}

// StorageConfig selects where exclusion list diffs are kept. CacheSize bounds
// how many diffs are held in memory; 0 uses the store default.
type StorageConfig struct {
	Backend   string `toml:"backend"`
	Path      string `toml:"path"`
	CacheSize int    `toml:"cacheSize"`
}

// PostgresConfig configures the postgres backend.
type PostgresConfig struct {
	DSN string `toml:"dsn"`
}

// S3Config configures the object store backend.
type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"accessKey"`
	SecretKey string `toml:"secretKey"`
	UseSSL    bool   `toml:"useSSL"`
	Prefix    string `toml:"prefix"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// WatchConfig controls reloading on external edits. File backends are watched
// for writes; postgres and s3 are re-read every PollSeconds.
type WatchConfig struct {
	Enabled     bool `toml:"enabled"`
	DebounceMs  int  `toml:"debounceMs"`
	PollSeconds int  `toml:"pollSeconds"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:   BackendTOML,
			Path:      filepath.Join(defaultDir(), "blacklists.toml"),
			CacheSize: 256,
		},
		S3: S3Config{
			Region: "us-east-1",
			UseSSL: true,
			Prefix: "hintprefs",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Watch: WatchConfig{
			DebounceMs:  100,
			PollSeconds: 30,
		},
	}
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	return filepath.Join(defaultDir(), "config.toml")
}

func defaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".hintprefs"
	}
	return filepath.Join(dir, "hintprefs")
}

// envBindings maps HINTPREFS_* variables to settings.
func envBindings() map[string]loader.Binding {
	return map[string]loader.Binding{
		EnvPrefix + "BACKEND":       {Path: "storage.backend"},
		EnvPrefix + "PATH":          {Path: "storage.path"},
		EnvPrefix + "CACHE_SIZE":    {Path: "storage.cacheSize", Kind: loader.KindInt},
		EnvPrefix + "PG_DSN":        {Path: "postgres.dsn"},
		EnvPrefix + "S3_ENDPOINT":   {Path: "s3.endpoint"},
		EnvPrefix + "S3_REGION":     {Path: "s3.region"},
		EnvPrefix + "S3_BUCKET":     {Path: "s3.bucket"},
		EnvPrefix + "S3_ACCESS_KEY": {Path: "s3.accessKey"},
		EnvPrefix + "S3_SECRET_KEY": {Path: "s3.secretKey"},
		EnvPrefix + "S3_USE_SSL":    {Path: "s3.useSSL", Kind: loader.KindBool},
		EnvPrefix + "S3_PREFIX":     {Path: "s3.prefix"},
		EnvPrefix + "LOG_LEVEL":     {Path: "logging.level"},
		EnvPrefix + "LOG_FORMAT":    {Path: "logging.format"},
		EnvPrefix + "WATCH":         {Path: "watch.enabled", Kind: loader.KindBool},
		EnvPrefix + "WATCH_POLL":    {Path: "watch.pollSeconds", Kind: loader.KindInt},
	}
}

// LoadOptions controls which sources Load reads.
type LoadOptions struct {
	// Path is the TOML file. Empty means DefaultPath; a missing file is
	// not an error.
	Path string

	// EnvFiles are .env files loaded into the process environment first.
	// Missing files are skipped.
	EnvFiles []string

	// FS reads the TOML file. Nil means the OS file system.
	FS loader.FileSystem

	// Lookup reads environment variables. Nil means os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Load assembles the configuration from defaults, the TOML file and the
// environment, in increasing precedence, and validates the result.
func Load(opts LoadOptions) (*Config, error) {
	for _, f := range opts.EnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	path := opts.Path
	if path == "" {
		path = DefaultPath()
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = loader.DefaultFS()
	}

	fileSettings, err := loader.NewTOMLLoaderWithFS(fsys, path).Load()
	if err != nil {
		return nil, err
	}

	env := loader.NewEnvLoader(envBindings())
	if opts.Lookup != nil {
		env.WithLookup(opts.Lookup)
	}
	envSettings, err := env.Load()
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := cfg.apply(loader.DeepMerge(fileSettings, envSettings), path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apply decodes settings over c, leaving unset fields untouched.
func (c *Config) apply(settings map[string]any, source string) error {
	if len(settings) == 0 {
		return nil
	}
	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return &ParseError{Path: source, Message: "unknown setting: " + serr.String(), Err: err}
		}
		return &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	return nil
}

// Validate checks that the configuration can be used.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(Backends, c.Storage.Backend) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidBackend, c.Storage.Backend))
	}

	switch c.Storage.Backend {
	case BackendTOML, BackendYAML:
		if c.Storage.Path == "" {
			errs = append(errs, required("storage.path", c.Storage.Backend))
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, required("postgres.dsn", c.Storage.Backend))
		}
	case BackendS3:
		if c.S3.Endpoint == "" {
			errs = append(errs, required("s3.endpoint", c.Storage.Backend))
		}
		if c.S3.Bucket == "" {
			errs = append(errs, required("s3.bucket", c.Storage.Backend))
		}
	}

	if c.Storage.CacheSize < 0 {
		errs = append(errs, &ValidationError{Path: "storage.cacheSize", Message: "must not be negative", Value: c.Storage.CacheSize})
	}
	if c.Watch.DebounceMs < 0 {
		errs = append(errs, &ValidationError{Path: "watch.debounceMs", Message: "must not be negative", Value: c.Watch.DebounceMs})
	}
	if c.Watch.PollSeconds < 0 {
		errs = append(errs, &ValidationError{Path: "watch.pollSeconds", Message: "must not be negative", Value: c.Watch.PollSeconds})
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, &ValidationError{Path: "logging.level", Message: "unknown level", Value: c.Logging.Level})
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, &ValidationError{Path: "logging.format", Message: "unknown format", Value: c.Logging.Format})
	}
	return errors.Join(errs...)
}

func required(path, backend string) error {
	return &ValidationError{Path: path, Message: "required by the " + backend + " backend"}
}
