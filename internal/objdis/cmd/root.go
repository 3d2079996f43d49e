package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/pprof"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"objdis/internal/dump"
	"objdis/internal/listing"
	"objdis/internal/objdis/log"
	"objdis/internal/psyq"
)

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().BoolP("alt-gte", "a", false, "Use the alternate GTE register names")

	rootCmd.Flags().StringP("output", "o", "", "Listing path (default <file>.TXT, - for stdout)")
	rootCmd.Flags().BoolP("json", "j", false, "Also write the signature JSON next to the listing")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")

	rootCmd.AddCommand(dumpCmd, infoCmd, browseCmd, sigCmd, syscallsCmd, schemaCmd)
}

var rootCmd = &cobra.Command{
	Use:   "objdis [file]",
	Short: "Annotated byte listings of Psy-Q object files and libraries",
	Long: `Objdis reads a Psy-Q MIPS object (.OBJ) or library (.LIB) and writes a
listing of its code sections: one banner per object, one label per symbol and
every byte as a hex token, with relocated fields printed as ??.`,
	Example: `
# Write FOO.OBJ.TXT next to the object
objdis FOO.OBJ

# Dump a library to stdout
objdis -o - LIBGTE.LIB

# Also build the signature file LIBGTE.LIB.TXT.json
objdis -j LIBGTE.LIB
  `,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		log.Setup(debug)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromFlags(cmd)
		if cfg.CPUProfile != "" {
			f, err := os.Create(cfg.CPUProfile)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		return runListing(args[0], cfg)
	},
}

func configFromFlags(cmd *cobra.Command) Config {
	var cfg Config
	cfg.Debug, _ = cmd.Flags().GetBool("debug")
	cfg.AltGTE, _ = cmd.Flags().GetBool("alt-gte")
	cfg.Output, _ = cmd.Flags().GetString("output")
	cfg.JSON, _ = cmd.Flags().GetBool("json")
	cfg.CPUProfile, _ = cmd.Flags().GetString("cpuprofile")
	return cfg
}

// listingPath returns where the listing of input goes when no output was
// given.
func listingPath(input, output string) string {
	if output == "" {
		return input + ".TXT"
	}
	return output
}

// runListing writes the listing of input to cfg.Output. Whatever was written
// before a failure stays in the file.
func runListing(input string, cfg Config) error {
	output := listingPath(input, cfg.Output)
	if _, err := os.Stat(input); err != nil {
		return fmt.Errorf("%w: %w", psyq.ErrIO, err)
	}

	var w io.Writer = os.Stdout
	var f *os.File
	if output != "-" {
		var err error
		if f, err = os.Create(output); err != nil {
			return fmt.Errorf("failed to create listing: %w", err)
		}
		w = f
	}

	var captured bytes.Buffer
	if cfg.JSON {
		w = io.MultiWriter(w, &captured)
	}

	err := dump.File(w, input)
	if f != nil {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close listing: %w", cerr)
		}
	}
	if err != nil {
		return err
	}
	if f != nil {
		slog.Info("Wrote listing", "path", output)
	}

	if !cfg.JSON {
		return nil
	}
	sigs, err := listing.ParseSignatures(&captured)
	if err != nil {
		return err
	}
	return writeSignatureFile(signaturePath(listingPath(input, ""), output), sigs)
}

// signaturePath names the JSON file built from a listing. A listing sent to
// stdout still gets its JSON on disk, next to where the listing would be.
func signaturePath(fallback, output string) string {
	if output == "-" {
		return fallback + ".json"
	}
	return output + ".json"
}

func writeSignatureFile(path string, sigs []listing.Signature) error {
	if path == "-" {
		return listing.WriteSignatures(os.Stdout, sigs)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create signature file: %w", err)
	}
	if err := listing.WriteSignatures(f, sigs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close signature file: %w", err)
	}
	slog.Info("Wrote signatures", "path", path, "objects", len(sigs))
	return nil
}

// isTerminal reports whether stdout is an interactive terminal.
func isTerminal() bool {
	return term.IsTerminal(os.Stdout.Fd())
}

// execute runs the command tree without fang. A failure is reported as a
// single log line.
func execute() error {
	err := rootCmd.Execute()
	if err != nil {
		slog.Error(err.Error())
	}
	return err
}

func Execute() {
	var err error
	// fang renders help as styled markdown, which only makes sense on a
	// terminal.
	if isTerminal() {
		err = fang.Execute(
			context.Background(),
			rootCmd,
			fang.WithNotifySignal(os.Interrupt),
			fang.WithErrorHandler(func(_ io.Writer, _ fang.Styles, err error) {
				slog.Error(err.Error())
			}),
		)
	} else {
		err = execute()
	}
	if cerr := log.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "could not close log file: %v\n", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
