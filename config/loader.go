package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/provisioner/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PROVISIONER"

// FileSystem abstracts file lookups so resolution can be tested.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem on the local disk.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolver finds configuration and env files.
type Resolver struct {
	FileSystem FileSystem
}

var (
	configSearchPaths = []string{
		"./provisioner.yml",
		"./provisioner.yaml",
		"./config/provisioner.yml",
		"./config.yml",
		"./config/config.yml",
		"../config/config.yml",
	}
	envSearchPaths = []string{
		"./.env.provisioner",
		"./.env",
		"./config/.env",
		"../.env",
	}
)

// ResolveFiles returns explicit paths when given, otherwise the first match
// from the standard search paths.
func (r *Resolver) ResolveFiles(opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.first(configSearchPaths)
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.first(envSearchPaths)
	}
	return resolved
}

func (r *Resolver) first(paths []string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	Logger     *logger.Logger
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithLogger sets the logger used for load warnings.
func WithLogger(l *logger.Logger) LoaderOption {
	return func(lc *LoaderConfig) { lc.Logger = l }
}

// Load reads the config file and .env file, then layers PROVISIONER_*
// environment variables on top. The returned *viper.Viper is a Getter.
//
// A missing file is not an error; an unreadable one is.
func Load(opts ...LoaderOption) (*viper.Viper, error) {
	lc := LoaderConfig{FileSystem: RealFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.Logger == nil {
		lc.Logger = logger.Get("config")
	}

	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(lc)

	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			lc.Logger.Warn("failed to load .env file", map[string]interface{}{
				"file":            files.EnvFile,
				logger.FieldError: err.Error(),
			})
		}
	}

	v := viper.New()
	v.SetDefault(KeyHost, DefaultHost)
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyScheme, DefaultScheme)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{
		KeyRejectUnauthorized, KeyProxyURL, KeyUsername, KeyPassword,
		KeyTLSCert, KeyTLSKey, KeyTLSCertFile, KeyTLSKeyFile, KeyTLSCAFile,
	} {
		// Explicit bindings make these keys visible to AllSettings.
		_ = v.BindEnv(key)
	}

	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", files.ConfigFile, err)
		}
		lc.Logger.Debug("loaded config file", map[string]interface{}{"file": files.ConfigFile})
	}

	return v, nil
}

// LoadConnection loads, applies defaults and validates a Connection.
func LoadConnection(opts ...LoaderOption) (*Connection, error) {
	v, err := Load(opts...)
	if err != nil {
		return nil, err
	}
	conn := FromGetter(v)
	conn.ApplyDefaults()
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	return conn, nil
}
