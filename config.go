package cardex

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/seralyne/cardex/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log     LogConfig         `toml:"log"`
	Server  ServerConfig      `toml:"server"`
	DB      database.DBConfig `toml:"db"`
	Pack    PackConfig        `toml:"pack"`
	Sweeper SweeperConfig     `toml:"sweeper"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
	// AdminCode gates operator endpoints. Empty disables them.
	AdminCode string `toml:"admin_code"`
	Version   string `toml:"version"`
}

type PackConfig struct {
	Capacity int `toml:"capacity"`
	// RefillHours is the time to credit one token, in hours.
	RefillHours int `toml:"refill_hours"`
}

// RefillInterval returns the configured refill duration, zero when unset so
// the bucket falls back to its default.
func (p PackConfig) RefillInterval() time.Duration {
	return time.Duration(p.RefillHours) * time.Hour
}

type SweeperConfig struct {
	// IntervalMinutes is how often the sweep runs.
	IntervalMinutes int `toml:"interval_minutes"`
	// RetentionHours is how long finished trade requests are kept.
	RetentionHours int `toml:"retention_hours"`
}

func (s SweeperConfig) Interval() time.Duration {
	if s.IntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
}

func (s SweeperConfig) Retention() time.Duration {
	if s.RetentionHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(s.RetentionHours) * time.Hour
}
