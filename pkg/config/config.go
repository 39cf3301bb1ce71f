package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/sqlbee/config"
	ConfigFileName    = "sqlbee.yml"
)

// Config holds all sqlbee configuration settings
type Config struct {
	// Dataset is the dataset name spans are tagged with
	Dataset string `yaml:"dataset" json:"dataset"`

	// APIKey is the team key presented to the collector
	APIKey string `yaml:"api_key" json:"api_key"`

	// CollectorURL is the base URL of the sqlbee collector
	CollectorURL string `yaml:"collector_url" json:"collector_url"`

	// SampleRate sends one span in N (1 sends everything)
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// CaptureQueryArgs controls whether statement parameters are recorded
	CaptureQueryArgs bool `yaml:"capture_query_args" json:"capture_query_args"`

	// MaxQueryLength truncates db.query beyond this many bytes (0 = no limit)
	MaxQueryLength int `yaml:"max_query_length" json:"max_query_length"`

	// SpanListLimitMax is the maximum number of results for span listing requests
	SpanListLimitMax int `yaml:"span_list_limit_max" json:"span_list_limit_max"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	// Load config
	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			// Return defaults on error
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

// newDefault returns a config with default values
func newDefault() *Config {
	return &Config{
		Dataset:          "sqlbee",
		APIKey:           "",
		CollectorURL:     "",
		SampleRate:       1,
		CaptureQueryArgs: true,
		MaxQueryLength:   0,
		SpanListLimitMax: 1000,
		sources:          make(map[string]string),
	}
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over file values
func Load() (*Config, error) {
	config := newDefault()

	// Initialize all sources as "default"
	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	// Determine config file path
	configPath := os.Getenv("SQLBEE_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	// Try to load from config file
	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig Config
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig, data)
	}

	// Override with environment variables
	config.applyEnvConfig()

	return config, nil
}

func attributeNames() []string {
	return []string{
		"dataset", "api_key", "collector_url", "sample_rate",
		"capture_query_args", "max_query_length", "span_list_limit_max",
	}
}

func (c *Config) applyFileConfig(file *Config, raw []byte) {
	if file.Dataset != "" {
		c.Dataset = file.Dataset
		c.sources["dataset"] = "file"
	}
	if file.APIKey != "" {
		c.APIKey = file.APIKey
		c.sources["api_key"] = "file"
	}
	if file.CollectorURL != "" {
		c.CollectorURL = file.CollectorURL
		c.sources["collector_url"] = "file"
	}
	if file.SampleRate != 0 {
		c.SampleRate = file.SampleRate
		c.sources["sample_rate"] = "file"
	}
	if file.MaxQueryLength != 0 {
		c.MaxQueryLength = file.MaxQueryLength
		c.sources["max_query_length"] = "file"
	}
	if file.SpanListLimitMax != 0 {
		c.SpanListLimitMax = file.SpanListLimitMax
		c.sources["span_list_limit_max"] = "file"
	}
	// Booleans need presence detection, a zero value is a valid setting
	if keyPresent(raw, "capture_query_args") {
		c.CaptureQueryArgs = file.CaptureQueryArgs
		c.sources["capture_query_args"] = "file"
	}
}

// keyPresent reports whether a top-level key appears in the raw yaml
func keyPresent(raw []byte, key string) bool {
	var keys map[string]interface{}
	if err := yaml.Unmarshal(raw, &keys); err != nil {
		return false
	}
	_, ok := keys[key]
	return ok
}

func (c *Config) applyEnvConfig() {
	if val := os.Getenv("SQLBEE_DATASET"); val != "" {
		c.Dataset = val
		c.sources["dataset"] = "environment"
	}
	if val := os.Getenv("SQLBEE_API_KEY"); val != "" {
		c.APIKey = val
		c.sources["api_key"] = "environment"
	}
	if val := os.Getenv("SQLBEE_COLLECTOR_URL"); val != "" {
		c.CollectorURL = val
		c.sources["collector_url"] = "environment"
	}
	if val := os.Getenv("SQLBEE_SAMPLE_RATE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.SampleRate = i
			c.sources["sample_rate"] = "environment"
		}
	}
	if val := os.Getenv("SQLBEE_CAPTURE_QUERY_ARGS"); val != "" {
		c.CaptureQueryArgs = val == "true" || val == "1"
		c.sources["capture_query_args"] = "environment"
	}
	if val := os.Getenv("SQLBEE_MAX_QUERY_LENGTH"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.MaxQueryLength = i
			c.sources["max_query_length"] = "environment"
		}
	}
	if val := os.Getenv("SQLBEE_SPAN_LIST_LIMIT_MAX"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.SpanListLimitMax = i
			c.sources["span_list_limit_max"] = "environment"
		}
	}
}

// ConfigFilePath returns the path to the config file
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Dataset == "" {
		return fmt.Errorf("dataset must not be empty")
	}
	if c.SampleRate < 1 {
		return fmt.Errorf("invalid sample_rate value: %d", c.SampleRate)
	}
	if c.MaxQueryLength < 0 {
		return fmt.Errorf("invalid max_query_length value: %d", c.MaxQueryLength)
	}
	if c.CollectorURL != "" {
		parsed, err := url.Parse(c.CollectorURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid collector_url value: %s", c.CollectorURL)
		}
	}
	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *Config) Attributes() []Attribute {
	return []Attribute{
		{Name: "dataset", Value: c.Dataset, Source: c.Source("dataset")},
		{Name: "api_key", Value: maskKey(c.APIKey), Source: c.Source("api_key")},
		{Name: "collector_url", Value: c.CollectorURL, Source: c.Source("collector_url")},
		{Name: "sample_rate", Value: strconv.Itoa(c.SampleRate), Source: c.Source("sample_rate")},
		{Name: "capture_query_args", Value: strconv.FormatBool(c.CaptureQueryArgs), Source: c.Source("capture_query_args")},
		{Name: "max_query_length", Value: strconv.Itoa(c.MaxQueryLength), Source: c.Source("max_query_length")},
		{Name: "span_list_limit_max", Value: strconv.Itoa(c.SpanListLimitMax), Source: c.Source("span_list_limit_max")},
	}
}

// maskKey hides all but the last four characters of the API key
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
