package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"asmbridge/internal/buildpipeline"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [flags] <file.asm>...",
		Short: "Assemble source files into raw binaries",
		Long:  `Assemble each file into <name>.bin next to it, or into the directory given by -o`,
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBuild,
	}
	cmd.Flags().StringP("out-dir", "o", "", "directory for output files (default: next to each source)")
	cmd.Flags().String("isa", "", "ISA name or TOML file (default from config, else tiny8)")
	cmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	cmd.Flags().Bool("no-cache", false, "do not read or write the disk cache")
	cmd.Flags().String("ui", "auto", "progress display (auto|on|off)")
	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	outDir, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return fmt.Errorf("failed to get out-dir flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	if cmd.Flags().Changed("isa") {
		if s.cfg.Assembler.ISA, err = cmd.Flags().GetString("isa"); err != nil {
			return fmt.Errorf("failed to get isa flag: %w", err)
		}
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	useUI, err := parseUIMode(uiValue, isTerminal(cmd.OutOrStdout()) && !s.quiet)
	if err != nil {
		return err
	}

	req, err := newRequest(s, args, !noCache, jobs)
	if err != nil {
		return err
	}
	var mu sync.Mutex
	written := make(map[string]string)
	req.After = func(res *buildpipeline.FileResult) error {
		dst := outputPath(res.Path, outDir)
		stop := s.timer.Begin("write")
		defer stop()
		if err := os.WriteFile(dst, res.Output, 0o644); err != nil { // #nosec G306 -- build artifact
			return fmt.Errorf("failed to write %s: %w", dst, err)
		}
		mu.Lock()
		written[res.Path] = dst
		mu.Unlock()
		return nil
	}

	var (
		res    buildpipeline.Result
		runErr error
	)
	if useUI {
		res, runErr = runWithUI(cmd.Context(), "asmbridge build", req)
	} else {
		res, runErr = buildpipeline.Assemble(cmd.Context(), req)
	}
	if err := buildpipeline.Report(cmd.ErrOrStderr(), res, req.Options.Render, s.quiet); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if !s.quiet {
		out := cmd.OutOrStdout()
		for _, fr := range res.Files {
			dst, ok := written[fr.Path]
			if !ok {
				continue
			}
			note := ""
			if fr.Cached {
				note = " (cached)"
			}
			fmt.Fprintf(out, "%s -> %s (%d bytes)%s\n", fr.Path, dst, len(fr.Output), note)
		}
	}
	if err := s.writeTimings(cmd); err != nil {
		return err
	}
	if failed := res.Failed(); failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d files failed\n", failed, len(res.Files))
		return errFailed
	}
	return nil
}

// outputPath replaces the extension of src with .bin, in dir when set.
func outputPath(src, dir string) string {
	base := filepath.Base(src)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + ".bin"
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, base)
}
