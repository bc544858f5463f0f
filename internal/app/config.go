package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// RigPath points at a single .hcl rig file or a directory of them.
	RigPath string

	// Experiment restricts the run to one named experiment block. Empty
	// runs every experiment in the rig, in file order.
	Experiment string

	// DataDir is where output files and the run history index live.
	DataDir string

	// ListenPort enables the status HTTP server. 0 is disabled.
	ListenPort int

	LogFormat string
	LogLevel  string

	// HistoryLimit, when positive, prints the most recent runs from the
	// history index instead of running anything.
	HistoryLimit int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.RigPath == "" && cfg.HistoryLimit <= 0 {
		return nil, errors.New("RigPath is a required configuration field and cannot be empty")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	return &cfg, nil
}
