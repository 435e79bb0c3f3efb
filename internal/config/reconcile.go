package config

import "time"

type ReconcileConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Schedule string        `yaml:"schedule" validate:"required_if=Enabled true"`
	Timeout  time.Duration `yaml:"timeout" validate:"min=0"`
}

func loadReconcileConfig() *ReconcileConfig {
	return &ReconcileConfig{
		Enabled:  getEnvAsBool("MOMO_RECONCILE_ENABLED", true),
		Schedule: getEnv("MOMO_RECONCILE_SCHEDULE", "@every 1m"),
		Timeout:  getEnvAsDuration("MOMO_RECONCILE_TIMEOUT", 50*time.Second),
	}
}
