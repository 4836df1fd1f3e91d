package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"asmbridge/internal/asm"
)

func newISACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "isa [name|file.toml]",
		Short: "Print the instruction table of an ISA",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			name := s.cfg.Assembler.ISA
			if len(args) == 1 {
				name = args[0]
			}
			isa, err := asm.ResolveISA(name)
			if err != nil {
				return err
			}
			return printISA(cmd, isa)
		},
	}
	return cmd
}

func printISA(cmd *cobra.Command, isa *asm.ISA) error {
	out := cmd.OutOrStdout()
	endian := "little"
	if isa.BigEndian {
		endian = "big"
	}
	fmt.Fprintf(out, "%s: %d-bit addresses, %s endian, %d registers (%s)\n\n",
		isa.Name, isa.AddressBits, endian, len(isa.Registers), strings.Join(isa.Registers, " "))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MNEMONIC\tOPERANDS\tOPCODE\tSIZE")
	for _, r := range isa.Rules() {
		kinds := make([]string, len(r.Operands))
		for i, k := range r.Operands {
			kinds[i] = k.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t% X\t%d\n", r.Mnemonic, strings.Join(kinds, ", "), r.Opcode, r.Size())
	}
	return tw.Flush()
}
