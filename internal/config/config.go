// Package config handles scenetool configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/assetbridge/internal/logger"
	"github.com/Faultbox/assetbridge/pkg/encoding"
	"github.com/Faultbox/assetbridge/pkg/native"
	"github.com/Faultbox/assetbridge/pkg/scene"
)

// Config holds all transcoding settings.
type Config struct {
	Heap      HeapConfig      `yaml:"heap" toml:"heap"`
	Transcode TranscodeConfig `yaml:"transcode" toml:"transcode"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// HeapConfig sizes the native heap, in bytes.
type HeapConfig struct {
	InitialSize uint32 `yaml:"initial_size" toml:"initial_size"`
	MaxSize     uint32 `yaml:"max_size" toml:"max_size"`
}

// TranscodeConfig holds scene transcoder settings.
type TranscodeConfig struct {
	MaxNodeDepth int `yaml:"max_node_depth" toml:"max_node_depth"`
	// LegacyCharset decodes native strings that are not valid UTF-8,
	// e.g. "windows-1252" or "euc-kr". Empty disables the fallback.
	LegacyCharset string `yaml:"legacy_charset" toml:"legacy_charset"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`
	LogFile    string `yaml:"log_file" toml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	file := logger.DefaultFileConfig("")
	return &Config{
		Heap: HeapConfig{
			InitialSize: native.DefaultInitialSize,
			MaxSize:     native.DefaultMaxSize,
		},
		Transcode: TranscodeConfig{
			MaxNodeDepth: scene.DefaultMaxNodeDepth,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAgeDays: file.MaxAgeDays,
			Compress:   file.Compress,
		},
	}
}

// Validate reports every setting that cannot be applied.
func (c *Config) Validate() error {
	var errs []error
	if c.Heap.MaxSize != 0 && c.Heap.InitialSize > c.Heap.MaxSize {
		errs = append(errs, fmt.Errorf("heap.initial_size %d exceeds heap.max_size %d", c.Heap.InitialSize, c.Heap.MaxSize))
	}
	if c.Transcode.MaxNodeDepth < 0 {
		errs = append(errs, fmt.Errorf("transcode.max_node_depth must not be negative, got %d", c.Transcode.MaxNodeDepth))
	}
	if _, err := encoding.Lookup(c.Transcode.LegacyCharset); err != nil {
		errs = append(errs, fmt.Errorf("transcode.legacy_charset: %w", err))
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	return errors.Join(errs...)
}

// FileConfig returns the rotation settings for logger.InitWithFileConfig.
func (c LoggingConfig) FileConfig() logger.FileConfig {
	return logger.FileConfig{
		Path:       c.LogFile,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// NewHeap creates a native heap sized by the heap section.
func (c *Config) NewHeap(opts ...native.Option) *native.Heap {
	opts = append([]native.Option{native.WithConfig(native.HeapConfig{
		InitialSize: c.Heap.InitialSize,
		MaxSize:     c.Heap.MaxSize,
	})}, opts...)
	return native.NewHeap(opts...)
}

// TranscoderOptions translates the transcode section into transcoder options.
func (c *Config) TranscoderOptions() ([]scene.TranscoderOption, error) {
	opts := []scene.TranscoderOption{scene.WithMaxNodeDepth(c.Transcode.MaxNodeDepth)}
	fallback, err := encoding.Fallback(c.Transcode.LegacyCharset)
	if err != nil {
		return nil, err
	}
	if fallback != nil {
		opts = append(opts, scene.WithStringFallback(fallback))
	}
	return opts, nil
}
