package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

const (
	// CredentialsKeyServer fetches an access key pair from the key server on every request.
	CredentialsKeyServer = "keyserver"
	// CredentialsShared reads the shared AWS credentials file.
	CredentialsShared = "shared"

	maxVisibilityTimeout = 43200
	maxReadWaitSeconds   = 20
)

// AppConfig ...
type AppConfig struct {
	Gateway struct {
		Addr            string `yaml:"addr"`
		LogLevel        string `yaml:"loglevel"`
		ReadTimeout     int    `yaml:"readTimeout"`
		WriteTimeout    int    `yaml:"writeTimeout"`
		ShutdownTimeout int    `yaml:"shutdownTimeout"`
		AuthSecret      string `yaml:"authSecret"`
	} `yaml:"gateway"`
	AWS struct {
		Region             string `yaml:"region"`
		Endpoint           string `yaml:"endpoint"`
		CredentialsSource  string `yaml:"credentialsSource"`
		CredentialsFile    string `yaml:"credentialsFile"`
		CredentialsProfile string `yaml:"credentialsProfile"`
		Retries            int    `yaml:"retries"`
	} `yaml:"aws"`
	Keyserver struct {
		URL     string `yaml:"url"`
		Timeout int    `yaml:"timeout"`
	} `yaml:"keyserver"`
	Queue struct {
		VisibilityTimeout int `yaml:"visibilityTimeout"`
		ReadWaitSeconds   int `yaml:"readWaitSeconds"`
	} `yaml:"queue"`
	Storage struct {
		DSN string `yaml:"dsn"`
	} `yaml:"storage"`
	Supervisor struct {
		Expiration int `yaml:"expiration"`
		Interval   int `yaml:"interval"`
	} `yaml:"supervisor"`
	Chaos struct {
		ErrorChance float64 `yaml:"errorChance"`
	} `yaml:"chaos"`
	Loadgen struct {
		Target  string `yaml:"target"`
		Queue   string `yaml:"queue"`
		Workers int    `yaml:"workers"`
		PauseMs int    `yaml:"pauseMs"`
		Token   string `yaml:"token"`
	} `yaml:"loadgen"`
}

// Default returns the configuration the gateway runs with when no file is given.
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.Gateway.Addr = ":5000"
	cfg.Gateway.LogLevel = "info"
	cfg.Gateway.ReadTimeout = 10
	cfg.Gateway.WriteTimeout = 30
	cfg.Gateway.ShutdownTimeout = 10
	cfg.AWS.Region = "eu-west-1"
	cfg.AWS.CredentialsSource = CredentialsKeyServer
	cfg.Keyserver.URL = "http://ec2-52-30-7-5.eu-west-1.compute.amazonaws.com:81/key"
	cfg.Keyserver.Timeout = 5
	cfg.Queue.VisibilityTimeout = 120
	cfg.Supervisor.Expiration = 7 * 24 * 3600
	cfg.Supervisor.Interval = 60
	cfg.Loadgen.Target = "http://localhost:5000"
	cfg.Loadgen.Queue = "loadgen"
	cfg.Loadgen.Workers = 4
	cfg.Loadgen.PauseMs = 10
	return cfg
}

// Read loads the file named by CFG_PATH over the defaults and applies env overrides.
func Read() (*AppConfig, error) {
	cfg := Default()
	if filename := os.Getenv("CFG_PATH"); filename != "" {
		buff, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(buff, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *AppConfig) applyEnv() error {
	overrides := map[string]*string{
		"GATEWAY_ADDR":     &cfg.Gateway.Addr,
		"GATEWAY_LOGLEVEL": &cfg.Gateway.LogLevel,
		"AWS_REGION":       &cfg.AWS.Region,
		"KEYSERVER_URL":    &cfg.Keyserver.URL,
		"STORAGE_DSN":      &cfg.Storage.DSN,
		"LOADGEN_TARGET":   &cfg.Loadgen.Target,
	}
	for key, field := range overrides {
		if value, ok := os.LookupEnv(key); ok {
			*field = value
		}
	}
	if value, ok := os.LookupEnv("CHAOS_ERROR_CHANCE"); ok {
		chance, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("CHAOS_ERROR_CHANCE: %w", err)
		}
		cfg.Chaos.ErrorChance = chance
	}
	return nil
}

// Validate ...
func (cfg *AppConfig) Validate() error {
	if cfg.Gateway.Addr == "" {
		return errors.New("gateway.addr is required")
	}
	if cfg.AWS.Region == "" {
		return errors.New("aws.region is required")
	}
	switch cfg.AWS.CredentialsSource {
	case CredentialsKeyServer:
		if cfg.Keyserver.URL == "" {
			return errors.New("keyserver.url is required for keyserver credentials")
		}
	case CredentialsShared:
	default:
		return fmt.Errorf("aws.credentialsSource: unknown source %q", cfg.AWS.CredentialsSource)
	}
	if cfg.AWS.Retries < 0 {
		return errors.New("aws.retries must not be negative")
	}
	if cfg.Gateway.ReadTimeout < 0 || cfg.Gateway.WriteTimeout < 0 || cfg.Gateway.ShutdownTimeout < 0 || cfg.Keyserver.Timeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if cfg.Queue.VisibilityTimeout < 0 || cfg.Queue.VisibilityTimeout > maxVisibilityTimeout {
		return fmt.Errorf("queue.visibilityTimeout must be within 0..%d", maxVisibilityTimeout)
	}
	if cfg.Queue.ReadWaitSeconds < 0 || cfg.Queue.ReadWaitSeconds > maxReadWaitSeconds {
		return fmt.Errorf("queue.readWaitSeconds must be within 0..%d", maxReadWaitSeconds)
	}
	if cfg.Chaos.ErrorChance < 0 || cfg.Chaos.ErrorChance > 1 {
		return errors.New("chaos.errorChance must be within 0..1")
	}
	if cfg.Supervisor.Interval <= 0 {
		return errors.New("supervisor.interval must be positive")
	}
	if cfg.Loadgen.Workers < 0 || cfg.Loadgen.PauseMs < 0 {
		return errors.New("loadgen.workers and loadgen.pauseMs must not be negative")
	}
	return nil
}
