package utils

import (
	"errors"

	"gopkg.in/yaml.v2"

	"github.com/alpacahq/framestore/executor/ff"
	"github.com/alpacahq/framestore/utils/log"
)

const (
	defaultKeyAppendPageSize   = 4 * 1024
	defaultValueAppendPageSize = 1024 * 1024
	pageGrid                   = 4 * 1024
)

// FrameConfig holds the settings for frame column storage.
type FrameConfig struct {
	RootDirectory       string
	FileOpts            ff.FileOpts
	KeyAppendPageSize   int64
	ValueAppendPageSize int64
	LogLevel            log.Level
}

func DefaultFrameConfig() *FrameConfig {
	return &FrameConfig{
		RootDirectory:       ".",
		FileOpts:            ff.OptNone,
		KeyAppendPageSize:   defaultKeyAppendPageSize,
		ValueAppendPageSize: defaultValueAppendPageSize,
		LogLevel:            log.INFO,
	}
}

// ParseConfig reads a YAML document on top of the defaults.
func ParseConfig(data []byte) (*FrameConfig, error) {
	cfg := DefaultFrameConfig()
	if err := cfg.Parse(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (m *FrameConfig) Parse(data []byte) error {
	var aux struct {
		RootDirectory       string   `yaml:"root_directory"`
		FileOptions         []string `yaml:"file_options"`
		KeyAppendPageSize   int64    `yaml:"key_append_page_size"`
		ValueAppendPageSize int64    `yaml:"value_append_page_size"`
		LogLevel            string   `yaml:"log_level"`
	}

	if err := yaml.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.RootDirectory != "" {
		m.RootDirectory = aux.RootDirectory
	}

	opts, err := ff.ParseFileOpts(aux.FileOptions)
	if err != nil {
		return err
	}
	m.FileOpts = opts

	if aux.KeyAppendPageSize < 0 || aux.ValueAppendPageSize < 0 {
		return errors.New("append page sizes must be positive")
	}
	if aux.KeyAppendPageSize > 0 {
		m.KeyAppendPageSize = roundToGrid(aux.KeyAppendPageSize)
	}
	if aux.ValueAppendPageSize > 0 {
		m.ValueAppendPageSize = roundToGrid(aux.ValueAppendPageSize)
	}

	if aux.LogLevel != "" {
		m.LogLevel = log.ParseLevel(aux.LogLevel)
		log.SetLevel(m.LogLevel)
	}
	return nil
}

// roundToGrid rounds up to a whole number of pages.
func roundToGrid(size int64) int64 {
	return (size + pageGrid - 1) / pageGrid * pageGrid
}
