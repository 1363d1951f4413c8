package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Config holds the configuration settings for the application.
type Config struct {
	Server   *ServerConfig   `yaml:"server"`
	LogLevel string          `yaml:"log_level"`
	LogEnc   string          `yaml:"log_encoding"`
	BadgerDB *BadgerDBConfig `yaml:"badger_db"`
	DB       *DBConfig       `yaml:"db"`
	Genesis  []GenesisUTXO   `yaml:"genesis"`
}

// ServerConfig holds the configuration settings for the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BadgerDBConfig holds the configuration settings for BadgerDB.
type BadgerDBConfig struct {
	Directory string `yaml:"directory"`
	InMemory  bool   `yaml:"in_memory"`
}

// DBConfig selects the snapshot store. db_type "badger" uses badger_db,
// anything else names a cosmos-db backend (goleveldb, memdb, ...).
type DBConfig struct {
	Name   string `yaml:"name"`
	Dir    string `yaml:"dir"`
	DBType string `yaml:"db_type"`
}

// GenesisUTXO seeds the pool when no snapshot exists.
type GenesisUTXO struct {
	Hash   string `yaml:"hash"`
	Index  uint32 `yaml:"index"`
	PubKey string `yaml:"pub_key"` //hex compressed public key
	Value  string `yaml:"value"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}

	config.setDefaults()
	return config, nil
}

func (c *Config) setDefaults() {
	if c.Server == nil {
		c.Server = &ServerConfig{Host: "127.0.0.1", Port: 3000}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DB == nil {
		c.DB = &DBConfig{Name: "utxo", DBType: "memdb"}
	}
	if c.BadgerDB == nil {
		c.BadgerDB = &BadgerDBConfig{InMemory: true}
	}
}
