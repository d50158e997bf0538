// internal/workers/interpret-command/config.go
package interpretcommand

import (
	"time"

	"hospitality-commands/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg config.CamundaConfig) *Config {
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{Timeout: timeout}
}
