package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

// LifterConfig represents blutter's own configuration surface,
// reported as JSON schema for tooling that wants to validate a
// config file before invoking the CLI.
type LifterConfig struct {
	Debug              bool   `json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	NoColor            bool   `json:"noColor" jsonschema:"title=No Color,description=Disable colorized output"`
	ProfilePath        string `json:"profilePath" jsonschema:"title=Profile Path,description=Path for CPU profile output"`
	CompressedPointers bool   `json:"compressedPointers" jsonschema:"title=Compressed Pointers,description=Whether the target snapshot uses compressed (32-bit) heap pointers"`
	MaxLookahead       int    `json:"maxLookahead" jsonschema:"title=Max Lookahead,description=Maximum number of instructions a composite recognizer may look ahead"`
	OutputFormat       string `json:"outputFormat" jsonschema:"title=Output Format,description=Rendering for the lift command's output,enum=text,enum=markdown"`
}

var schemaCmd = &cobra.Command{
	Use:    "schema",
	Short:  "Generate JSON schema for configuration",
	Long:   "Generate JSON schema for blutter's configuration.",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := new(jsonschema.Reflector)
		bts, err := json.MarshalIndent(reflector.Reflect(&LifterConfig{}), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(bts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
