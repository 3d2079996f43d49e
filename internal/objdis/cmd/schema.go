package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"objdis/internal/listing"
)

// Config holds the settings of a listing run.
type Config struct {
	Debug      bool   `json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	AltGTE     bool   `json:"altGte" jsonschema:"title=Alternate GTE names,description=Name GTE registers with the alternate table"`
	Output     string `json:"output,omitempty" jsonschema:"title=Output,description=Listing path; - writes to stdout"`
	JSON       bool   `json:"json" jsonschema:"title=Signature JSON,description=Also write the signature JSON of the listing"`
	CPUProfile string `json:"cpuProfile,omitempty" jsonschema:"title=CPU Profile,description=Path for CPU profile output"`
}

var schemaCmd = &cobra.Command{
	Use:    "schema",
	Short:  "Generate JSON schema for configuration",
	Long:   "Generate JSON schema for the objdis configuration or, with --signatures, for the signature JSON",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		signatures, _ := cmd.Flags().GetBool("signatures")
		bts, err := schemaJSON(signatures)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(bts))
		return nil
	},
}

func init() {
	schemaCmd.Flags().Bool("signatures", false, "Describe the signature JSON instead of the configuration")
}

func schemaJSON(signatures bool) ([]byte, error) {
	reflector := new(jsonschema.Reflector)
	var schema *jsonschema.Schema
	if signatures {
		schema = reflector.Reflect(&[]listing.Signature{})
	} else {
		schema = reflector.Reflect(&Config{})
	}
	bts, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return bts, nil
}
