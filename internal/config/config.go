package config

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/kirsle/configdir"
	"github.com/pkg/errors"
)

const AppName = "stint"

type Config struct {
	Logger  Logger  `envPrefix:"LOGGER_"`
	HTTP    HTTP    `envPrefix:"HTTP_"`
	Storage Storage `envPrefix:"STORAGE_"`
	Tracker Tracker `envPrefix:"TRACKER_"`
	UI      UI      `envPrefix:"UI_"`
}

type Logger struct {
	Level slog.Level `env:"LEVEL" envDefault:"warn"`
}

type HTTP struct {
	Address string `env:"ADDRESS,expand" envDefault:":8000"`
}

type Storage struct {
	Dir          string `env:"DIR,expand"`
	Database     string `env:"DATABASE,expand"`
	Snapshot     string `env:"SNAPSHOT,expand"`
	AutoSnapshot bool   `env:"AUTO_SNAPSHOT" envDefault:"false"`
	StateKey     string `env:"STATE_KEY" envDefault:"basecamp_timer_v1"`
}

type Tracker struct {
	Host         string `env:"HOST" envDefault:"3.basecamp.com"`
	TitleSuffix  string `env:"TITLE_SUFFIX" envDefault:" on Basecamp"`
	ParserPolicy string `env:"PARSER_POLICY" envDefault:"v2"`
}

type UI struct {
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"1s"`
	OpenCommand     string        `env:"OPEN_COMMAND" envDefault:"xdg-open"`
}

func Parse() (*Config, error) {
	conf, err := env.ParseAsWithOptions[Config](env.Options{
		Prefix: "STINT_",
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	conf.Storage.resolve()

	if conf.UI.RefreshInterval <= 0 {
		return nil, errors.Errorf("invalid refresh interval '%s'", conf.UI.RefreshInterval)
	}

	return &conf, nil
}

// resolve fills the file locations left empty from the storage directory,
// which itself defaults to the user configuration directory.
func (s *Storage) resolve() {
	if s.Dir == "" {
		s.Dir = configdir.LocalConfig(AppName)
	}
	if s.Database == "" {
		s.Database = filepath.Join(s.Dir, "stint.db")
	}
	if s.Snapshot == "" {
		s.Snapshot = filepath.Join(s.Dir, "snapshot.jsonl")
	}
}
