package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/ianlancetaylor/demangle"
	"github.com/spf13/cobra"

	"objdis/internal/dump"
	"objdis/internal/objdis/styles"
	"objdis/internal/psyq"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Report sections, symbols and patches",
	Long: `Print a markdown report of every object in a file: its sections, the
symbols declared in them and the relocation expressions of every patch.
The report is rendered when stdout is a terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := infoReport(args[0])
		if err != nil {
			return err
		}
		if isTerminal() {
			renderer, err := styles.MarkdownRenderer(100)
			if err != nil {
				return fmt.Errorf("failed to create markdown renderer: %w", err)
			}
			if report, err = renderer.Render(report); err != nil {
				return fmt.Errorf("failed to render report: %w", err)
			}
		}
		_, err = io.WriteString(cmd.OutOrStdout(), report)
		return err
	},
}

func infoReport(path string) (string, error) {
	var sb strings.Builder
	err := dump.Each(path, func(name string, reg *psyq.Registry) error {
		writeInfo(&sb, name, reg)
		return nil
	})
	return sb.String(), err
}

// writeInfo appends the markdown report of one object to sb.
func writeInfo(sb *strings.Builder, name string, reg *psyq.Registry) {
	fmt.Fprintf(sb, "# %s\n\n", name)

	sb.WriteString("## Sections\n\n")
	sb.WriteString("| ID | Name | Group | Align | Size | Data | Symbols | Patches |\n")
	sb.WriteString("|---:|---|---:|---:|---:|---:|---:|---:|\n")
	for _, s := range reg.Sections() {
		fmt.Fprintf(sb, "| %d | `%s` | %d | %d | $%X | $%X | %d | %d |\n",
			s.ID, s.Name, s.Group, s.Align, s.Size, len(s.Data), len(s.Symbols()), len(s.Patches()))
	}

	var symbols, patches strings.Builder
	for _, s := range reg.Sections() {
		for _, sym := range s.Symbols() {
			fmt.Fprintf(&symbols, "| `%s` | $%X | %s | %d | `%s` |",
				reg.SectionName(s.ID), sym.Offset, sym.Kind, sym.Number, sym.Name)
			if d := demangle.Filter(sym.Name); d != sym.Name {
				fmt.Fprintf(&symbols, " `%s` |\n", d)
			} else {
				symbols.WriteString("  |\n")
			}
		}
		for _, p := range s.Patches() {
			fmt.Fprintf(&patches, "| `%s` | $%X | %s | `%s` |\n",
				reg.SectionName(s.ID), p.Offset, p.Kind, p.Expr.Format(reg))
		}
	}

	if symbols.Len() > 0 {
		sb.WriteString("\n## Symbols\n\n")
		sb.WriteString("| Section | Offset | Kind | Number | Name | Demangled |\n")
		sb.WriteString("|---|---:|---|---:|---|---|\n")
		sb.WriteString(symbols.String())
	}
	if patches.Len() > 0 {
		sb.WriteString("\n## Patches\n\n")
		sb.WriteString("| Section | Offset | Kind | Expression |\n")
		sb.WriteString("|---|---:|---|---|\n")
		sb.WriteString(patches.String())
	}
	sb.WriteString("\n")
}
