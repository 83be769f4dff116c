package commands

import (
	"github.com/spf13/cobra"
)

// VersionOutput is the JSON/YAML document written by version.
type VersionOutput struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Built   string `json:"built" yaml:"built"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display mercury version and build information.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := NewCommandContext(cmd).Renderer
			if short {
				r.Println(version)
				return nil
			}
			if r.EffectiveMode().Structured() {
				return r.Document(VersionOutput{Version: version, Commit: commit, Built: date})
			}
			r.Printf("mercury v%s\n", version)
			r.Printf("commit %s, built %s\n", commit, date)
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")

	return cmd
}
