package config

import (
	"os"
	"strconv"
)

// Config snapshots the environment at startup. Database settings are read by
// the database package directly; everything the request path needs lives here.
type Config struct {
	Port       string
	CORSOrigin string

	// NotifyCommentVotes controls whether votes on comments notify the
	// comment's author. Post-vote notifications are always on.
	NotifyCommentVotes bool
}

func Load() *Config {
	cfg := &Config{
		Port:       os.Getenv("PORT"),
		CORSOrigin: os.Getenv("CORS_ORIGIN"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080" // local dev fallback
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}

	if v, err := strconv.ParseBool(os.Getenv("NOTIFY_COMMENT_VOTES")); err == nil {
		cfg.NotifyCommentVotes = v
	}

	return cfg
}
