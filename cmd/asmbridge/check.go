package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"asmbridge/internal/buildpipeline"
	"asmbridge/internal/diagfmt"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] <file.asm>...",
		Short: "Assemble without writing output and report diagnostics",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck,
	}
	cmd.Flags().String("format", "", "output format (pretty|json|short), default from config")
	cmd.Flags().String("isa", "", "ISA name or TOML file (default from config, else tiny8)")
	cmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	if cmd.Flags().Changed("format") {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to get format flag: %w", err)
		}
		f, err := diagfmt.ParseFormat(format)
		if err != nil || f == diagfmt.FormatOff {
			return fmt.Errorf("unsupported format %q (must be pretty, json or short)", format)
		}
		s.cfg.Diagnostics.Format = format
	}
	if cmd.Flags().Changed("isa") {
		if s.cfg.Assembler.ISA, err = cmd.Flags().GetString("isa"); err != nil {
			return fmt.Errorf("failed to get isa flag: %w", err)
		}
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}

	// check does not use the disk cache
	req, err := newRequest(s, args, false, jobs)
	if err != nil {
		return err
	}
	res, err := buildpipeline.Assemble(cmd.Context(), req)
	if err != nil {
		return err
	}
	// диагностики идут в stdout: это основной вывод команды
	if err := buildpipeline.Report(cmd.OutOrStdout(), res, req.Options.Render, s.quiet); err != nil {
		return err
	}
	if err := s.writeTimings(cmd); err != nil {
		return err
	}
	if res.Failed() > 0 {
		return errFailed
	}
	return nil
}
