// Package config loads server settings from a TOML file, command-line flags
// and the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	ServiceName string `toml:"serviceName"`
	HTTPAddr    string `toml:"httpAddr"`
	LogLevel    string `toml:"logLevel"`
	LogDir      string `toml:"logDir"`
	Dev         bool   `toml:"dev"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-Ip.
	TrustProxy bool `toml:"trustProxy"`

	KafkaAddr  string `toml:"kafkaAddr"`
	KafkaTopic string `toml:"kafkaTopic"`
	KafkaBatch int    `toml:"kafkaBatch"`
}

func defaults() Config {
	return Config{
		ServiceName: "applog",
		HTTPAddr:    ":8080",
		LogLevel:    "info",
		LogDir:      "logs",
	}
}

// Load reads the TOML file at path and applies flag overrides from args.
// A missing file is not an error, defaults are used instead. Development mode
// is on if the file, the -dev flag or APP_ENV=development says so.
func Load(path string, args []string) (*Config, error) {
	cfg := defaults()

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := fs.String("config", path, "Path to TOML config file")
	httpAddr := fs.String("http", "", "HTTP server address in the form 'host:port'.")
	logLevel := fs.String("log", "", "Log level: debug, info, warn, error.")
	logDir := fs.String("logdir", "", "Directory of the application log file.")
	dev := fs.Bool("dev", false, "Run in development mode with debug entries enabled.")
	trustProxy := fs.Bool("trustproxy", false, "Take the client address from proxy headers.")
	kafkaAddr := fs.String("kafka", "", "Kafka server address in the form 'host:port'.")
	kafkaTopic := fs.String("topic", "", "Kafka topic.")
	kafkaBatch := fs.Int("batch", 0, "Kafka batch size.")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if _, err := toml.DecodeFile(*configPath, &cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", *configPath, err)
		}
		log.Warnf("[config] config file %s not found, using defaults", *configPath)
	}

	// Override config with flags if set
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
	}
	if *dev || os.Getenv("APP_ENV") == "development" {
		cfg.Dev = true
	}
	if *trustProxy {
		cfg.TrustProxy = true
	}
	if *kafkaAddr != "" {
		cfg.KafkaAddr = *kafkaAddr
	}
	if *kafkaTopic != "" {
		cfg.KafkaTopic = *kafkaTopic
	}
	if *kafkaBatch != 0 {
		cfg.KafkaBatch = *kafkaBatch
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("%w: empty http address", ErrInvalid)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !strings.Contains(c.HTTPAddr, ":") {
		log.Warn("[config] use ':' before port number, e.g. ':8080'")
	}
	return nil
}

// Level returns the logrus level of the service diagnostics.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Kafka reports whether access-log shipping is configured.
func (c *Config) Kafka() bool {
	return c.KafkaAddr != "" && c.KafkaTopic != ""
}
