package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the name of the application
	AppName = "bcfetch"
	// CatalogURL is the merged Apple software update catalog that lists Boot Camp products.
	CatalogURL = "https://swscan.apple.com/content/catalogs/others/index-14-13-12-10.16-10.15-10.14-10.13-10.12-10.11-10.10-10.9-mountainlion-lion-snowleopard-leopard.merged-1.sucatalog.gz"
	// DefaultModel is suggested when prompting for a Mac model.
	DefaultModel = "iMac12,2"
	// DefaultLocale selects the distribution document scanned for model identifiers.
	DefaultLocale = "English"
	// PackageName is the file name of the raw download inside the work directory.
	PackageName = "BootCampSupport.pkg"
	// OutputName is the file name the extracted disk image is moved to.
	OutputName = "BootcampSupportSoftware.dmg"
	// ConfigFileName is read from the application directory when present.
	ConfigFileName = "config.yaml"
)

// Settings are the user-tunable values, read from config.yaml.
type Settings struct {
	CatalogURL   string `yaml:"catalog_url"`
	DefaultModel string `yaml:"default_model"`
	OutputName   string `yaml:"output_name"`
	Locale       string `yaml:"locale"`
}

// Config holds the application's configuration.
type Config struct {
	homeDir string
	Settings
}

var userHomeDir = os.UserHomeDir

// New creates a new Config instance.
var New = func() (*Config, error) {
	var home string
	var err error

	// BCFETCH_HOME is useful for testing.
	homeOverride := os.Getenv("BCFETCH_HOME")
	if homeOverride != "" {
		home = homeOverride
	} else {
		home, err = userHomeDir()
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{homeDir: home, Settings: defaults()}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func defaults() Settings {
	return Settings{
		CatalogURL:   CatalogURL,
		DefaultModel: DefaultModel,
		OutputName:   OutputName,
		Locale:       DefaultLocale,
	}
}

// load overlays config.yaml from the app directory. A missing file is not an error.
func (c *Config) load() error {
	path := c.GetConfigPath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if s.CatalogURL != "" {
		c.CatalogURL = s.CatalogURL
	}
	if s.DefaultModel != "" {
		c.DefaultModel = s.DefaultModel
	}
	if s.OutputName != "" {
		c.OutputName = s.OutputName
	}
	if s.Locale != "" {
		c.Locale = s.Locale
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BCFETCH_CATALOG_URL"); v != "" {
		c.CatalogURL = v
	}
	if v := os.Getenv("BCFETCH_MODEL"); v != "" {
		c.DefaultModel = v
	}
}

// GetAppDir returns the path to the application's hidden directory.
func (c *Config) GetAppDir() string {
	return filepath.Join(c.homeDir, "."+AppName)
}

// GetConfigPath returns the path of the optional config file.
func (c *Config) GetConfigPath() string {
	return filepath.Join(c.GetAppDir(), ConfigFileName)
}

// WorkDir returns the per-product working directory under base.
func WorkDir(base, key string) string {
	return filepath.Join(base, "BC-"+key)
}
