package config

import (
	"os"
	"strconv"
)

// applyEnv overlays ABFORGE_* environment variables on the loaded config.
// Environment wins over file values so deployments can override without
// editing the yaml.
func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("ABFORGE_ROOT", &c.Root)
	setString("ABFORGE_WEIGHTS_DIR", &c.WeightsDir)
	setString("ABFORGE_EXAMPLES_DIR", &c.ExamplesDir)
	setString("ABFORGE_JOBS_DIR", &c.JobsDir)
	setString("ABFORGE_HOST", &c.Server.Host)
	setString("ABFORGE_LOG_LEVEL", &c.Logging.Level)

	if v := os.Getenv("ABFORGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("ABFORGE_RELOAD"); v != "" {
		if reload, err := strconv.ParseBool(v); err == nil {
			c.Server.Reload = reload
		}
	}
}
