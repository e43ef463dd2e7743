package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// BenchConfig drives cmd/stockbench.
type BenchConfig struct {
	Databases Databases     `yaml:"databases"`
	Settings  BenchSettings `yaml:"benchmark_settings"`
}

type Databases struct {
	Postgres string `yaml:"postgres"`
	Mongo    string `yaml:"mongo"`
	MongoDB  string `yaml:"mongo_database"`
}

type BenchSettings struct {
	Concurrency  int    `yaml:"concurrency"`
	InitialStock int    `yaml:"initial_stock"`
	UnitPrice    string `yaml:"unit_price"`
	Timeout      string `yaml:"timeout"`
}

func LoadBenchConfig(path string) (*BenchConfig, error) {
	cfg := &BenchConfig{
		Settings: BenchSettings{
			Concurrency:  50,
			InitialStock: 500,
			UnitPrice:    "9.99",
			Timeout:      "60s",
		},
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
