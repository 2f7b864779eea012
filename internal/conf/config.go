// config.go: settings struct and the functions to load and save the soundset configuration.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/soundset/soundset-go/internal/errors"
)

//go:embed config.yaml
var configFiles embed.FS

// TaxonomySettings controls canonical name resolution during merge.
type TaxonomySettings struct {
	Enabled           bool          // true to resolve category names through the name authority
	BaseURL           string        // name-authority API endpoint
	Locale            string        // locale passed to the search API
	CacheFile         string        // persistent raw-name to canonical-name cache, CSV
	MaxRetries        int           // attempts per lookup before falling back to the raw name
	BackoffDelay      time.Duration // base delay between retries, grows linearly per attempt
	RateLimitCooldown time.Duration // fixed wait after an HTTP 429
	RequestInterval   time.Duration // minimum spacing between API calls
	Timeout           time.Duration // per-request timeout
}

// EnrichmentSettings controls dataset metadata enrichment from the record
// repository.
type EnrichmentSettings struct {
	Enabled bool          // true to fetch title/license/creators from the repository record
	BaseURL string        // repository API endpoint
	Timeout time.Duration // per-request timeout
}

// SQLiteSettings contains relational export settings.
type SQLiteSettings struct {
	Enabled bool   // true to export the combined dataset to SQLite
	Path    string // database file path
}

// ExportSettings contains output settings beyond the canonical file.
type ExportSettings struct {
	SQLite SQLiteSettings
}

// FetchSettings controls archive downloads.
type FetchSettings struct {
	Timeout time.Duration // whole-download timeout
}

// LogSettings contains log file settings.
type LogSettings struct {
	Enabled bool   // true to write a log file in addition to console output
	Path    string // log file path
}

// Settings is the root configuration.
type Settings struct {
	Debug      bool   // true to enable debug logging
	DataPath   string // directory holding downloaded source datasets
	OutputPath string // directory receiving canonical files

	Taxonomy   TaxonomySettings
	Enrichment EnrichmentSettings
	Export     ExportSettings
	Fetch      FetchSettings
	Log        LogSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	once             sync.Once
)

// Load reads the configuration into a fresh Settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// ValidateSettings rejects configurations that cannot work.
func ValidateSettings(settings *Settings) error {
	if settings.Taxonomy.Enabled && settings.Taxonomy.MaxRetries < 1 {
		return errors.Newf("taxonomy.maxretries must be at least 1, got %d", settings.Taxonomy.MaxRetries).
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}
	if settings.DataPath == "" {
		return errors.Newf("datapath must not be empty").
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}
	if settings.OutputPath == "" {
		return errors.Newf("outputpath must not be empty").
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}
	return nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// createDefaultConfig writes the embedded default config to the first config
// path and reads it back.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil { //nolint:gosec // config carries no secrets
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return string(data)
}

// GetDefaultConfigPaths lists the directories searched for config.yaml, in
// priority order: the working directory, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("error getting user config directory: %w", err)
	}
	return []string{".", filepath.Join(configDir, "soundset")}, nil
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if
// necessary.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig overwrites the configuration file with the given settings,
// writing through a temporary file so the update is atomic.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary config file: %w", err)
	}
	tempName := tempFile.Name()

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempName)
		return fmt.Errorf("error writing temporary config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempName)
		return fmt.Errorf("error closing temporary config file: %w", err)
	}

	if err := os.Rename(tempName, configPath); err != nil {
		_ = os.Remove(tempName)
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
