package clidriver

import "github.com/caarlos0/env/v6"

// EnvConfig holds the process-level toggles wisp reads from the
// environment rather than flags, since they're debugging aids a script
// invocation shouldn't need to thread through argv.
type EnvConfig struct {
	GCStress  bool `env:"WISP_GC_STRESS" envDefault:"false"`
	TraceExec bool `env:"WISP_TRACE_EXEC" envDefault:"false"`
}

// loadEnvConfig parses EnvConfig from the environment. A malformed value
// (e.g. WISP_GC_STRESS=maybe) is reported as an error rather than
// silently defaulting.
func loadEnvConfig() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
