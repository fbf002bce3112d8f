// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Repository RepositoryConfig `yaml:"repository"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Host string `yaml:"host"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // путь к файлу sqlite
}

type LoggingConfig struct {
	Development bool `yaml:"development"`
}

type RepositoryConfig struct {
	Type string `yaml:"type"` // "sqlite" или "inmemory"
}

type SchedulerConfig struct {
	Interval  time.Duration `yaml:"-"`
	BatchSize int           `yaml:"batch_size"`
}

// UnmarshalYAML разбирает interval из строки вида "500ms", "1s".
// yaml.v3 сам по себе time.Duration из строки не читает.
func (s *SchedulerConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Interval  string `yaml:"interval"`
		BatchSize int    `yaml:"batch_size"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.Interval != "" {
		interval, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return fmt.Errorf("неверный scheduler.interval %q: %w", raw.Interval, err)
		}
		s.Interval = interval
	}
	if raw.BatchSize != 0 {
		s.BatchSize = raw.BatchSize
	}
	return nil
}

func Default() *Config {
	return &Config{
		Server:     ServerConfig{Host: "127.0.0.1", Port: "8080"},
		Database:   DatabaseConfig{Path: "odot.db"},
		Logging:    LoggingConfig{Development: true},
		Repository: RepositoryConfig{Type: "sqlite"},
		Scheduler:  SchedulerConfig{Interval: time.Second, BatchSize: 100},
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yml"
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// нет файла - работаем на дефолтах
			return Default(), nil
		}
		return nil, fmt.Errorf("не могу открыть %s: %w", path, err)
	}
	defer file.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга %s: %w", path, err)
	}

	if cfg.Scheduler.Interval <= 0 {
		cfg.Scheduler.Interval = time.Second
	}
	if cfg.Scheduler.BatchSize <= 0 {
		cfg.Scheduler.BatchSize = 100
	}

	return cfg, nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
