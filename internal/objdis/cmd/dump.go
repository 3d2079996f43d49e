package cmd

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"objdis/internal/dump"
	"objdis/internal/ui/colorize"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [file...]",
	Short: "Print listings to stdout",
	Long: `Print the listing of each object or library to stdout. Listings are
coloured when stdout is a terminal unless OBJDIS_NO_COLOR is set.`,
	Example: `
# Print two objects one after the other
objdis dump A.OBJ B.OBJ | less -R
  `,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDump(cmd.OutOrStdout(), args, isTerminal() && colorize.Enabled())
	},
}

// runDump writes the listing of every path to w, each followed by a newline.
// A failing file still has its partial listing written before the error is
// returned.
func runDump(w io.Writer, paths []string, color bool) error {
	for _, path := range paths {
		var buf bytes.Buffer
		derr := dump.File(&buf, path)

		text := buf.String()
		if color {
			if colored, err := colorize.Listing(text); err == nil {
				text = colored
			}
		}
		if _, err := io.WriteString(w, text+"\n"); err != nil {
			return fmt.Errorf("failed to write listing: %w", err)
		}
		if derr != nil {
			return derr
		}
	}
	return nil
}
