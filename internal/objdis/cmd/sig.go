package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"objdis/internal/listing"
)

var sigCmd = &cobra.Command{
	Use:   "sig [listing]",
	Short: "Convert a listing into signature JSON",
	Long: `Read a listing written by objdis and write one signature per object: the
name, the byte pattern with relocated bytes as ?? and the byte offset of each
label.`,
	Example: `
# Writes LIBGTE.LIB.TXT.json
objdis sig LIBGTE.LIB.TXT
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		return runSig(args[0], output)
	},
}

func init() {
	sigCmd.Flags().StringP("output", "o", "", "JSON path (default <listing>.json, - for stdout)")
}

func runSig(input, output string) error {
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open listing: %w", err)
	}
	defer f.Close()

	sigs, err := listing.ParseSignatures(f)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	if output == "" {
		output = input + ".json"
	}
	return writeSignatureFile(output, sigs)
}
