package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Partition Partition `yaml:"partition"`
	Selection Selection `yaml:"selection"`
	Logging   Logging   `yaml:"logging"`
}

type Partition struct {
	SizeThreshold int     `yaml:"theta_ast"`
	WControl      float64 `yaml:"w_control"`
	WData         float64 `yaml:"w_data"`
	MaxDepth      int     `yaml:"max_depth"`
	Seed          uint64  `yaml:"seed"`
	Resolution    float64 `yaml:"resolution"`
}

type Selection struct {
	K          int      `yaml:"k"`
	NumPerm    int      `yaml:"num_perm"`
	Seed       int64    `yaml:"seed"`
	BlockSize  int      `yaml:"block_size"`
	Workers    int      `yaml:"workers"`
	Extensions []string `yaml:"extensions"`
	ReadCap    int64    `yaml:"read_cap"`
}

type Logging struct {
	Debug bool `yaml:"debug"`
}

func Default() *Config {
	return &Config{
		Partition: Partition{
			SizeThreshold: 120,
			WControl:      3.0,
			WData:         1.0,
			MaxDepth:      20,
			Seed:          0,
			Resolution:    1.0,
		},
		Selection: Selection{
			K:          305,
			NumPerm:    128,
			Seed:       1,
			BlockSize:  4096,
			Workers:    runtime.NumCPU(),
			Extensions: []string{".js"},
		},
	}
}

// LoadConfig reads a YAML file over the defaults; keys absent from the file
// keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}
	return config, nil
}

func LoadConfigFromEnv() *Config {
	d := Default()
	return &Config{
		Partition: Partition{
			SizeThreshold: getEnvInt("CURATOR_THETA_AST", d.Partition.SizeThreshold),
			WControl:      getEnvFloat("CURATOR_W_CONTROL", d.Partition.WControl),
			WData:         getEnvFloat("CURATOR_W_DATA", d.Partition.WData),
			MaxDepth:      getEnvInt("CURATOR_MAX_DEPTH", d.Partition.MaxDepth),
			Seed:          uint64(getEnvInt("CURATOR_PARTITION_SEED", int(d.Partition.Seed))),
			Resolution:    getEnvFloat("CURATOR_RESOLUTION", d.Partition.Resolution),
		},
		Selection: Selection{
			K:          getEnvInt("CURATOR_K", d.Selection.K),
			NumPerm:    getEnvInt("CURATOR_NUM_PERM", d.Selection.NumPerm),
			Seed:       int64(getEnvInt("CURATOR_SELECT_SEED", int(d.Selection.Seed))),
			BlockSize:  getEnvInt("CURATOR_BLOCK_SIZE", d.Selection.BlockSize),
			Workers:    getEnvInt("CURATOR_WORKERS", d.Selection.Workers),
			Extensions: getEnvList("CURATOR_EXTENSIONS", d.Selection.Extensions),
			ReadCap:    int64(getEnvInt("CURATOR_READ_CAP", int(d.Selection.ReadCap))),
		},
		Logging: Logging{
			Debug: getEnvBool("CURATOR_DEBUG", false),
		},
	}
}

// LoadEnv loads .env style files into the process environment. Missing
// files are ignored; variables already set are not overridden.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	p, s := c.Partition, c.Selection
	switch {
	case p.SizeThreshold < 0:
		return fmt.Errorf("%w: theta_ast must be non-negative, got %d", ErrInvalid, p.SizeThreshold)
	case p.WControl <= 0 || p.WData <= 0:
		return fmt.Errorf("%w: edge multipliers must be positive", ErrInvalid)
	case p.MaxDepth < 0:
		return fmt.Errorf("%w: max_depth must be non-negative, got %d", ErrInvalid, p.MaxDepth)
	case p.Resolution <= 0:
		return fmt.Errorf("%w: resolution must be positive", ErrInvalid)
	case s.K < 0:
		return fmt.Errorf("%w: k must be non-negative, got %d", ErrInvalid, s.K)
	case s.NumPerm <= 0:
		return fmt.Errorf("%w: num_perm must be positive, got %d", ErrInvalid, s.NumPerm)
	case s.BlockSize <= 0:
		return fmt.Errorf("%w: block_size must be positive, got %d", ErrInvalid, s.BlockSize)
	case s.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalid, s.Workers)
	case len(s.Extensions) == 0:
		return fmt.Errorf("%w: at least one extension is required", ErrInvalid)
	case s.ReadCap < 0:
		return fmt.Errorf("%w: read_cap must be non-negative", ErrInvalid)
	}
	for _, ext := range s.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: extension %q must start with a dot", ErrInvalid, ext)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
