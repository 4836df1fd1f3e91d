package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"asmbridge/internal/asm"
	"asmbridge/internal/asmcache"
	"asmbridge/internal/buildpipeline"
	"asmbridge/internal/ui"
)

// newRequest builds a pipeline request from the merged settings.
func newRequest(s *settings, files []string, useCache bool, jobs int) (*buildpipeline.Request, error) {
	opts, err := s.cfg.AssemblerOptions(s.isTTY)
	if err != nil {
		return nil, err
	}
	req := &buildpipeline.Request{
		Files:     files,
		Options:   opts,
		Assembler: asm.New(opts),
		Jobs:      jobs,
		Timer:     s.timer,
		Logger:    s.log,
	}
	if useCache && s.cfg.Cache.Enabled {
		dir, err := s.cfg.CacheDir()
		if err == nil {
			req.Cache, err = asmcache.Open(dir)
		}
		if err != nil {
			// кэш необязателен
			s.log.Warn().Err(err).Msg("disk cache disabled")
			req.Cache = nil
		}
	}
	return req, nil
}

// parseUIMode resolves auto|on|off against the terminal state.
func parseUIMode(value string, tty bool) (bool, error) {
	switch value {
	case "", "auto":
		return tty, nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("unsupported ui mode %q (must be auto, on or off)", value)
}

type assembleOutcome struct {
	result buildpipeline.Result
	err    error
}

// runWithUI drives the pipeline while a Bubble Tea program renders progress.
func runWithUI(ctx context.Context, title string, req *buildpipeline.Request) (buildpipeline.Result, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan assembleOutcome, 1)

	go func() {
		reqCopy := *req
		reqCopy.Progress = buildpipeline.ChannelSink{Ch: events}
		res, err := buildpipeline.Assemble(ctx, &reqCopy)
		outcomeCh <- assembleOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, req.Files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// дочитываем события, чтобы конвейер не встал
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
