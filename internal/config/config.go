// Package config assembles the application configuration from defaults, an
// optional JSON file, environment variables and command-line flags, in that
// order of increasing priority.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings of the service.
type Config struct {
	RunAddr                  string        `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	LogLevel                 string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
	DBFileName               string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"filepath"`
	DatabaseDSN              string        `env:"DATABASE_DSN" json:"database_dsn"`
	DBConnectionTimeout      time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"-"`
	MigrationsDir            string        `env:"MIGRATIONS_DIR" json:"migrations_dir"`
	AuthCookieName           string        `env:"AUTH_COOKIE_NAME" json:"auth_cookie_name" validate:"required"`
	AuthCookieMaxAge         time.Duration `env:"AUTH_COOKIE_MAX_AGE" json:"-"`
	ChannelCapacity          int           `env:"CHANNEL_CAPACITY" json:"channel_capacity"`
	DelayBetweenQueueFetches time.Duration `env:"DELAY_BETWEEN_QUEUE_FETCHES" json:"-"`
	TrustedSubnet            string        `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`
}

var defaultConfig = Config{
	RunAddr:                  ":8080",
	LogLevel:                 "info",
	DBFileName:               "",
	DatabaseDSN:              "",
	DBConnectionTimeout:      10 * time.Second,
	MigrationsDir:            "cmd/dietapi/migrations",
	AuthCookieName:           "diet_session",
	AuthCookieMaxAge:         180 * 24 * time.Hour,
	ChannelCapacity:          10,
	DelayBetweenQueueFetches: 5 * time.Second,
	TrustedSubnet:            "",
}

// fileConfig mirrors the JSON config file. Pointer fields distinguish
// "absent" from "explicitly empty".
type fileConfig struct {
	RunAddr         *string `json:"server_address"`
	LogLevel        *string `json:"log_level"`
	DBFileName      *string `json:"file_storage_path"`
	DatabaseDSN     *string `json:"database_dsn"`
	MigrationsDir   *string `json:"migrations_dir"`
	AuthCookieName  *string `json:"auth_cookie_name"`
	ChannelCapacity *int    `json:"channel_capacity"`
	TrustedSubnet   *string `json:"trusted_subnet"`
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warning": true,
		"error":   true,
		"fatal":   true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

func applyDefaults(values *Config, defaults Config) {
	if values.RunAddr == "" {
		values.RunAddr = defaults.RunAddr
	}

	if values.LogLevel == "" {
		values.LogLevel = defaults.LogLevel
	}

	if values.DBFileName == "" {
		values.DBFileName = defaults.DBFileName
	}

	if values.DatabaseDSN == "" {
		values.DatabaseDSN = defaults.DatabaseDSN
	}

	if values.DBConnectionTimeout == 0 {
		values.DBConnectionTimeout = defaults.DBConnectionTimeout
	}

	if values.MigrationsDir == "" {
		values.MigrationsDir = defaults.MigrationsDir
	}

	if values.AuthCookieName == "" {
		values.AuthCookieName = defaults.AuthCookieName
	}

	if values.AuthCookieMaxAge == 0 {
		values.AuthCookieMaxAge = defaults.AuthCookieMaxAge
	}

	if values.ChannelCapacity == 0 {
		values.ChannelCapacity = defaults.ChannelCapacity
	}

	if values.DelayBetweenQueueFetches == 0 {
		values.DelayBetweenQueueFetches = defaults.DelayBetweenQueueFetches
	}

	if values.TrustedSubnet == "" {
		values.TrustedSubnet = defaults.TrustedSubnet
	}
}

func (c *Config) applyConfigFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fromFile fileConfig
	if err := json.Unmarshal(content, &fromFile); err != nil {
		return err
	}

	if fromFile.RunAddr != nil {
		c.RunAddr = *fromFile.RunAddr
	}

	if fromFile.LogLevel != nil {
		c.LogLevel = *fromFile.LogLevel
	}

	if fromFile.DBFileName != nil {
		c.DBFileName = *fromFile.DBFileName
	}

	if fromFile.DatabaseDSN != nil {
		c.DatabaseDSN = *fromFile.DatabaseDSN
	}

	if fromFile.MigrationsDir != nil {
		c.MigrationsDir = *fromFile.MigrationsDir
	}

	if fromFile.AuthCookieName != nil {
		c.AuthCookieName = *fromFile.AuthCookieName
	}

	if fromFile.ChannelCapacity != nil {
		c.ChannelCapacity = *fromFile.ChannelCapacity
	}

	if fromFile.TrustedSubnet != nil {
		c.TrustedSubnet = *fromFile.TrustedSubnet
	}

	return nil
}

func (c *Config) applyEnv() error {
	var valuesFromEnv Config
	err := env.Parse(&valuesFromEnv)
	if err != nil {
		return err
	}

	if valuesFromEnv.RunAddr != "" {
		c.RunAddr = valuesFromEnv.RunAddr
	}

	if valuesFromEnv.LogLevel != "" {
		c.LogLevel = valuesFromEnv.LogLevel
	}

	if valuesFromEnv.DBFileName != "" {
		c.DBFileName = valuesFromEnv.DBFileName
	}

	if valuesFromEnv.DatabaseDSN != "" {
		c.DatabaseDSN = valuesFromEnv.DatabaseDSN
	}

	if valuesFromEnv.DBConnectionTimeout != 0 {
		c.DBConnectionTimeout = valuesFromEnv.DBConnectionTimeout
	}

	if valuesFromEnv.MigrationsDir != "" {
		c.MigrationsDir = valuesFromEnv.MigrationsDir
	}

	if valuesFromEnv.AuthCookieName != "" {
		c.AuthCookieName = valuesFromEnv.AuthCookieName
	}

	if valuesFromEnv.AuthCookieMaxAge != 0 {
		c.AuthCookieMaxAge = valuesFromEnv.AuthCookieMaxAge
	}

	if valuesFromEnv.ChannelCapacity != 0 {
		c.ChannelCapacity = valuesFromEnv.ChannelCapacity
	}

	if valuesFromEnv.DelayBetweenQueueFetches != 0 {
		c.DelayBetweenQueueFetches = valuesFromEnv.DelayBetweenQueueFetches
	}

	if valuesFromEnv.TrustedSubnet != "" {
		c.TrustedSubnet = valuesFromEnv.TrustedSubnet
	}

	return nil
}

// getConfigFilePath resolves the JSON config file location from the CONFIG
// environment variable or the -c/-config command-line arguments. The
// arguments are scanned manually because the file has to be applied before
// flag.Parse() runs.
func getConfigFilePath(scanArgs bool) string {
	path := os.Getenv("CONFIG")

	if !scanArgs {
		return path
	}

	args := os.Args[1:]
	for i, arg := range args {
		switch {
		case arg == "-c" || arg == "-config":
			if i+1 < len(args) {
				path = args[i+1]
			}

		case strings.HasPrefix(arg, "-c="):
			path = strings.TrimPrefix(arg, "-c=")

		case strings.HasPrefix(arg, "-config="):
			path = strings.TrimPrefix(arg, "-config=")
		}
	}

	return path
}

// InitOption customizes the behaviour of New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips command-line flags parsing. Used by tests,
// where os.Args belongs to the test runner.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds and validates the configuration. Sources are applied in order:
// defaults, JSON config file, environment variables, command-line flags.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	configFile := getConfigFilePath(!options.disableFlagsParsing)
	if configFile != "" {
		if err := values.applyConfigFile(configFile); err != nil {
			return nil, err
		}
	}

	if err := values.applyEnv(); err != nil {
		return nil, err
	}

	if !options.disableFlagsParsing {
		flag.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port to run server")
		flag.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
		flag.StringVar(&values.DBFileName, "f", values.DBFileName, "JSON file name with database")
		flag.StringVar(&values.DatabaseDSN, "d", values.DatabaseDSN, "A string with the database connection details")
		flag.StringVar(&values.MigrationsDir, "m", values.MigrationsDir, "directory with goose migration files")
		flag.StringVar(&values.TrustedSubnet, "t", values.TrustedSubnet, "CIDR of the subnet trusted to read internal stats")
		flag.StringVar(&configFile, "c", configFile, "path to JSON config file")
		flag.StringVar(&configFile, "config", configFile, "path to JSON config file")
		flag.Parse()
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}
