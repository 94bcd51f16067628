package config

import (
	"errors"
	"os"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const (
	defaultCumulativeSource = "https://raw.githubusercontent.com/ynshung/covid-19-malaysia/master/covid-19-my-states-cases.csv"
	defaultNationalSource   = "https://raw.githubusercontent.com/owid/covid-19-data/master/public/data/owid-covid-data.csv"
	defaultBoundarySource   = "https://raw.githubusercontent.com/codeforamerica/click_that_hood/master/public/data/malaysia.geojson"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	CumulativeSource string
	NationalSource   string
	BoundarySource   string // empty skips the boundary name check
	CountryISO       string
	Continent        string
	ReferenceFile    string // empty uses the embedded reference data

	RefreshInterval time.Duration
	FetchTimeout    time.Duration

	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSinkTopic     string
	BatchSize          int
	BatchFlushInterval time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "6h")
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CumulativeSource: sharedcfg.EnvOrDefault("CUMULATIVE_SOURCE", defaultCumulativeSource),
		NationalSource:   sharedcfg.EnvOrDefault("NATIONAL_SOURCE", defaultNationalSource),
		BoundarySource:   defaultBoundarySource,
		CountryISO:       strings.ToUpper(sharedcfg.EnvOrDefault("COUNTRY_ISO", "MYS")),
		Continent:        sharedcfg.EnvOrDefault("CONTINENT", "Asia"),
		ReferenceFile:    os.Getenv("REFERENCE_FILE"),

		RefreshInterval: refreshInterval,
		FetchTimeout:    fetchTimeout,

		KafkaEnabled:       sharedcfg.EnvOrDefault("KAFKA_ENABLED", "true") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "covid-derived-tables"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	// An explicitly empty BOUNDARY_SOURCE disables the check.
	if v, ok := os.LookupEnv("BOUNDARY_SOURCE"); ok {
		cfg.BoundarySource = v
	}

	if cfg.CumulativeSource == "" {
		return nil, errors.New("CUMULATIVE_SOURCE is required")
	}
	if cfg.NationalSource == "" {
		return nil, errors.New("NATIONAL_SOURCE is required")
	}
	if cfg.CountryISO == "" {
		return nil, errors.New("COUNTRY_ISO is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}
