package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"asmbridge/internal/config"
	"asmbridge/internal/logging"
	"asmbridge/internal/observ"
	"asmbridge/internal/prof"
)

// settings is the merged result of config file, environment and flags.
// Flags win when set explicitly.
type settings struct {
	cfg   config.Config
	log   zerolog.Logger
	timer *observ.Timer // nil unless --timings
	quiet bool
	isTTY func() bool
	prof  *prof.Session
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	flags := cmd.Root().PersistentFlags()

	path, err := flags.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOptional(config.FileName)
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)

	if flags.Changed("color") {
		if cfg.Diagnostics.Color, err = flags.GetString("color"); err != nil {
			return nil, fmt.Errorf("failed to get color flag: %w", err)
		}
	}
	if flags.Changed("max-diagnostics") {
		if cfg.Diagnostics.Max, err = flags.GetInt("max-diagnostics"); err != nil {
			return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
	}
	if flags.Changed("log-level") {
		if cfg.Log.Level, err = flags.GetString("log-level"); err != nil {
			return nil, fmt.Errorf("failed to get log-level flag: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	quiet, err := flags.GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	showTimings, err := flags.GetBool("timings")
	if err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}

	stderr := cmd.ErrOrStderr()
	log, err := logging.New(logging.Options{
		App:     "asmbridge",
		Level:   cfg.Log.Level,
		Console: true,
		NoColor: !isTerminal(stderr),
		Out:     stderr,
	})
	if err != nil {
		return nil, err
	}

	s := &settings{
		cfg:   cfg,
		log:   log,
		quiet: quiet,
		isTTY: func() bool { return isTerminal(stderr) },
	}
	if showTimings {
		s.timer = observ.NewTimer()
	}

	var profOpts prof.Options
	for flag, dst := range map[string]*string{
		"cpu-profile":   &profOpts.CPU,
		"mem-profile":   &profOpts.Mem,
		"runtime-trace": &profOpts.Trace,
	} {
		if *dst, err = flags.GetString(flag); err != nil {
			return nil, fmt.Errorf("failed to get %s flag: %w", flag, err)
		}
	}
	if profOpts.Enabled() {
		if s.prof, err = prof.Start(profOpts); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// close stops profiling; commands defer it right after loadSettings.
func (s *settings) close() {
	if err := s.prof.Stop(); err != nil {
		s.log.Error().Err(err).Msg("profiling")
	}
}

func (s *settings) writeTimings(cmd *cobra.Command) error {
	if s.timer == nil {
		return nil
	}
	return s.timer.WriteSummary(cmd.ErrOrStderr())
}
