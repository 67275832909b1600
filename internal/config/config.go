package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/fearless-draft/internal/catalog"
	"github.com/DoyleJ11/fearless-draft/internal/engine"
)

type Config struct {
	HTTPAddr       string
	DatabaseURL    string
	RedisURL       string
	RedisTTL       time.Duration
	NATSURL        string
	DDragonBaseURL string
	LogLevel       string
	LogFormat      string
	CORSOrigins    []string

	Series SeriesDefaults
	// Items, when set, replaces the Data Dragon catalog.
	Items []catalog.Item
}

// SeriesDefaults fill in whatever a create request leaves out.
type SeriesDefaults struct {
	NumberOfGames int    `yaml:"number_of_games"`
	Fearless      bool   `yaml:"fearless"`
	TurnTimerSec  int    `yaml:"turn_timer_sec"`
	BlueName      string `yaml:"blue_name"`
	RedName       string `yaml:"red_name"`
}

func (d SeriesDefaults) Rules() engine.Rules {
	return engine.Rules{
		NumberOfGames: d.NumberOfGames,
		Fearless:      d.Fearless,
		TurnTimerSec:  d.TurnTimerSec,
	}
}

func (d SeriesDefaults) SideNames() map[engine.Side]string {
	return map[engine.Side]string{engine.SideBlue: d.BlueName, engine.SideRed: d.RedName}
}

type fileConfig struct {
	Series SeriesDefaults `yaml:"series"`
	Items  []catalog.Item `yaml:"items"`
}

func defaults() *Config {
	return &Config{
		HTTPAddr:       ":8080",
		RedisTTL:       24 * time.Hour,
		DDragonBaseURL: catalog.DefaultDDragonURL,
		LogLevel:       "info",
		LogFormat:      "json",
		CORSOrigins:    []string{"*"},
		Series: SeriesDefaults{
			NumberOfGames: 1,
			TurnTimerSec:  engine.DefaultTurnTimerSec,
			BlueName:      "Blue Team",
			RedName:       "Red Team",
		},
	}
}

// Load reads the process environment, falling back to values from envFiles
// (".env" when none are given). Missing env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	fileEnv := map[string]string{}
	for _, f := range envFiles {
		m, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		maps.Copy(fileEnv, m)
	}

	return FromEnv(func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fileEnv[key]
	})
}

// FromEnv builds a Config from getenv. The YAML file named by DRAFT_CONFIG is
// applied first so that environment variables win.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := defaults()
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	if path := get("DRAFT_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if v := get("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.DatabaseURL = get("DATABASE_URL")
	cfg.RedisURL = get("REDIS_URL")
	cfg.NATSURL = get("NATS_URL")
	if v := get("DDRAGON_BASE_URL"); v != "" {
		cfg.DDragonBaseURL = strings.TrimRight(v, "/")
	}
	if v := get("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := get("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := get("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := get("REDIS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("REDIS_TTL: invalid duration %q", v)
		}
		cfg.RedisTTL = d
	}
	if v := get("TURN_TIMER_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("TURN_TIMER_SEC: want a positive integer, got %q", v)
		}
		cfg.Series.TurnTimerSec = n
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	fc := fileConfig{Series: c.Series}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fc.Series.NumberOfGames < 1 {
		return fmt.Errorf("parse config file %s: number_of_games must be at least 1", path)
	}
	if fc.Series.TurnTimerSec < 1 {
		return fmt.Errorf("parse config file %s: turn_timer_sec must be positive", path)
	}
	c.Series = fc.Series
	c.Items = fc.Items
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
