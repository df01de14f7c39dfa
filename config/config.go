package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the indexing pipeline. All fields are
// optional in the YAML file; zero values are replaced with defaults.
type Config struct {
	DataDir           string   `yaml:"data_dir"`
	RawImageDir       string   `yaml:"raw_image_dir"`
	ProcessedImageDir string   `yaml:"processed_image_dir"`
	MetadataDBPath    string   `yaml:"metadata_db_path"`
	EmbeddingPath     string   `yaml:"embedding_path"`
	OCRPath           string   `yaml:"ocr_path"`

	MaxWidth    int `yaml:"max_width"`
	MaxHeight   int `yaml:"max_height"`
	JPEGQuality int `yaml:"jpeg_quality"`

	AllowedExtensions []string `yaml:"allowed_extensions"`

	EmbeddingDims int    `yaml:"embedding_dims"`
	OCRLanguages  string `yaml:"ocr_languages"`
	TesseractPath string `yaml:"tesseract_path"`

	// MaxWorkers limits the ingest worker pool. Zero means auto-size
	// from the CPU count.
	MaxWorkers int `yaml:"max_workers"`
}

// Default returns a configuration with every field populated.
func Default() *Config {
	cfg := &Config{DataDir: "data"}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML configuration file. A missing file is not an error:
// the defaults are returned so the tool works out of the box.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("cannot read config %s: %v", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config %s: %v", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.RawImageDir == "" {
		c.RawImageDir = filepath.Join(c.DataDir, "images", "raw")
	}
	if c.ProcessedImageDir == "" {
		c.ProcessedImageDir = filepath.Join(c.DataDir, "images", "processed")
	}
	if c.MetadataDBPath == "" {
		c.MetadataDBPath = filepath.Join(c.DataDir, "metadata.db")
	}
	if c.EmbeddingPath == "" {
		c.EmbeddingPath = filepath.Join(c.DataDir, "embeddings.json")
	}
	if c.OCRPath == "" {
		c.OCRPath = filepath.Join(c.DataDir, "ocr_results.json")
	}
	if c.MaxWidth <= 0 {
		c.MaxWidth = 1920
	}
	if c.MaxHeight <= 0 {
		c.MaxHeight = 1080
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = 85
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}
	}
	if c.EmbeddingDims <= 0 {
		c.EmbeddingDims = 384
	}
	if c.OCRLanguages == "" {
		c.OCRLanguages = "eng"
	}
}

// AllowedExt reports whether the (dotted, any-case) extension belongs to
// an image file the pipeline should pick up.
func (c *Config) AllowedExt(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// EnsureDirs creates the data directories the pipeline writes to.
func (c *Config) EnsureDirs() error {
	dirs := []string{
		c.RawImageDir,
		c.ProcessedImageDir,
		filepath.Dir(c.MetadataDBPath),
		filepath.Dir(c.EmbeddingPath),
		filepath.Dir(c.OCRPath),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create directory %s: %v", dir, err)
		}
	}
	return nil
}
