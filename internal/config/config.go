package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/menta2k/photo-cropper/pkg/codec"
	"github.com/menta2k/photo-cropper/pkg/cropper"
	"github.com/menta2k/photo-cropper/pkg/intake"
	"github.com/menta2k/photo-cropper/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Intake  IntakeConfig  `json:"intake"`
	Cropper CropperConfig `json:"cropper"`
	Output  OutputConfig  `json:"output"`
}

// IntakeConfig holds configuration for the downscaler
type IntakeConfig struct {
	MaxDimension    int   `json:"max_dimension"`
	Quality         int   `json:"quality"`
	MaxSourcePixels int64 `json:"max_source_pixels"`
}

// CropperConfig holds configuration for the crop/zoom engine
type CropperConfig struct {
	Preset      string  `json:"preset"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	PixelRatio  float64 `json:"pixel_ratio"`
	DragDamping float64 `json:"drag_damping"`
	WheelStep   float64 `json:"wheel_step"`
}

// OutputConfig holds configuration for the emitted bitmap
type OutputConfig struct {
	Format    string `json:"format"`
	Quality   int    `json:"quality"`
	OutputDir string `json:"output_dir"`
	Suffix    string `json:"suffix"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Intake: IntakeConfig{
			MaxDimension:    intake.MaxDimension,
			Quality:         intake.Quality,
			MaxSourcePixels: intake.MaxSourcePixels,
		},
		Cropper: CropperConfig{
			Preset:      types.Square.Name,
			Width:       types.Square.Width,
			Height:      types.Square.Height,
			PixelRatio:  1,
			DragDamping: 5,
			WheelStep:   0.1,
		},
		Output: OutputConfig{
			Format:    "jpg",
			Quality:   95,
			OutputDir: "./output",
			Suffix:    "_cropped",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Missing fields keep
// their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyPreset sets the output size from a named preset
func (c *Config) ApplyPreset(name string) error {
	p, ok := types.PresetByName(name)
	if !ok {
		return fmt.Errorf("unknown preset: %s", name)
	}
	c.Cropper.Preset = p.Name
	c.Cropper.Width = p.Width
	c.Cropper.Height = p.Height
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Intake.MaxDimension < 1 {
		return fmt.Errorf("intake.max_dimension must be positive")
	}

	if c.Intake.Quality < 1 || c.Intake.Quality > 100 {
		return fmt.Errorf("intake.quality must be between 1 and 100")
	}

	if c.Cropper.Width < 1 || c.Cropper.Height < 1 {
		return fmt.Errorf("cropper.width and cropper.height must be positive")
	}

	if c.Cropper.PixelRatio <= 0 {
		return fmt.Errorf("cropper.pixel_ratio must be positive")
	}

	if c.Cropper.DragDamping <= 0 {
		return fmt.Errorf("cropper.drag_damping must be positive")
	}

	if c.Cropper.WheelStep <= 0 || c.Cropper.WheelStep > types.MaxZoom {
		return fmt.Errorf("cropper.wheel_step must be in (0, %.1f]", types.MaxZoom)
	}

	if _, err := codec.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

// IntakeSettings converts the intake section for the downscaler
func (c *Config) IntakeSettings() intake.Config {
	cfg := intake.DefaultConfig()
	cfg.MaxDimension = c.Intake.MaxDimension
	cfg.Quality = c.Intake.Quality
	cfg.MaxSourcePixels = c.Intake.MaxSourcePixels
	return cfg
}

// CropperSettings converts the cropper and output sections for the engine
func (c *Config) CropperSettings() (cropper.Config, error) {
	format, err := codec.ParseFormat(c.Output.Format)
	if err != nil {
		return cropper.Config{}, err
	}
	return cropper.Config{
		Width:       c.Cropper.Width,
		Height:      c.Cropper.Height,
		PixelRatio:  c.Cropper.PixelRatio,
		Quality:     c.Output.Quality,
		Format:      format,
		DragDamping: c.Cropper.DragDamping,
		WheelStep:   c.Cropper.WheelStep,
	}, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "photo-cropper", "config.json")
}
