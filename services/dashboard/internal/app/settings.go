package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/posboard/pkg"
	"github.com/appetiteclub/posboard/pkg/normalize"
	"github.com/aquamarinepk/aqm"
)

const (
	defaultBackendTimeout = 15 * time.Second
	defaultPollInterval   = 15 * time.Second
)

// Settings is the resolved service configuration.
type Settings struct {
	BackendURL     string
	BackendTimeout time.Duration
	PollInterval   time.Duration
	EmptyPolicy    normalize.EmptyPolicy
	AllowedOrigins []string
	Bus            pkg.TransportConfig
}

// LoadSettings reads the service keys from config.
func LoadSettings(config *aqm.Config) (Settings, error) {
	if config == nil {
		return settingsFrom(func(string) (string, bool) { return "", false })
	}
	return settingsFrom(config.GetString)
}

func settingsFrom(get func(key string) (string, bool)) (Settings, error) {
	value := func(key string) string {
		v, _ := get(key)
		return strings.TrimSpace(v)
	}

	busCfg, err := pkg.TransportConfigFrom(get)
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		BackendURL:  value("backend.url"),
		EmptyPolicy: normalize.ParseEmptyPolicy(value("dashboard.empty_policy")),
		Bus:         busCfg,
	}
	for _, origin := range strings.Split(value("web.allowed_origins"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			s.AllowedOrigins = append(s.AllowedOrigins, origin)
		}
	}
	if s.BackendTimeout, err = pkg.ParseDuration(value("backend.timeout"), defaultBackendTimeout); err != nil {
		return Settings{}, fmt.Errorf("backend.timeout: %w", err)
	}
	if s.PollInterval, err = pkg.ParseDuration(value("dashboard.poll_interval"), defaultPollInterval); err != nil {
		return Settings{}, fmt.Errorf("dashboard.poll_interval: %w", err)
	}
	return s, nil
}
