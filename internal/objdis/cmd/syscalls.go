package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"objdis/internal/syscalls"
)

var syscallsCmd = &cobra.Command{
	Use:   "syscalls [table]",
	Short: "Generate function-start patterns for BIOS call stubs",
	Long: `Read a table of NAME=(TT:FF) lines, where TT is the BIOS call table
address and FF the function number, and print a pattern list that matches
the stub of every entry.`,
	Example: `
objdis syscalls bios.txt > bios_patterns.xml
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSyscalls(cmd.OutOrStdout(), args[0])
	},
}

func runSyscalls(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open stub table: %w", err)
	}
	defer f.Close()

	entries, err := syscalls.ParseTable(f)
	if err != nil {
		return err
	}
	return syscalls.WritePatterns(w, entries)
}
