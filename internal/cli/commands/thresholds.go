package commands

import (
	"github.com/leapstack-labs/mercury/internal/capture"
	"github.com/leapstack-labs/mercury/pkg/threshold"
	"github.com/spf13/cobra"
)

// ThresholdOutput is one resolved threshold in JSON/YAML output.
// Value is a number, or "off" when the check is disabled.
type ThresholdOutput struct {
	Name   threshold.Name   `json:"name" yaml:"name"`
	Value  any              `json:"value" yaml:"value"`
	Source threshold.Source `json:"source" yaml:"source"`
}

// ThresholdsOutput is the JSON/YAML document written by thresholds.
type ThresholdsOutput struct {
	Capture      string            `json:"capture,omitempty" yaml:"capture,omitempty"`
	ConfigFile   string            `json:"config_file,omitempty" yaml:"config_file,omitempty"`
	UsedDefaults bool              `json:"used_defaults" yaml:"used_defaults"`
	Thresholds   []ThresholdOutput `json:"thresholds" yaml:"thresholds"`
}

// NewThresholdsCommand creates the thresholds command.
func NewThresholdsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thresholds [capture]",
		Short: "Show the effective thresholds and where each comes from",
		Long: `Resolve thresholds the way analyze does and show the source layer of each
value: inline (flags), file (the capture), settings (mercury.yaml and
MERCURY_THRESHOLDS_* variables) or defaults.`,
		Example: `  # Thresholds from settings and defaults
  mercury thresholds

  # Include the values a capture file sets
  mercury thresholds captures/users.sql

  # As YAML
  mercury thresholds -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThresholds(cmd, args)
		},
	}

	addThresholdFlags(cmd)

	return cmd
}

func runThresholds(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)

	inline, err := inlineLayer(cmd.Flags())
	if err != nil {
		return err
	}

	doc := ThresholdsOutput{ConfigFile: cmdCtx.Cfg.ConfigFile}

	var fileLayer threshold.Layer
	if len(args) == 1 {
		f, err := capture.Load(args[0])
		if err != nil {
			return err
		}
		fileLayer = f.Thresholds
		doc.Capture = args[0]
	}

	set, err := threshold.Resolve(inline, fileLayer, cmdCtx.Cfg.Thresholds, threshold.Defaults())
	if err != nil {
		return err
	}

	doc.UsedDefaults = set.UsedDefaults()
	for _, e := range set.Entries() {
		var value any = e.Value
		if threshold.IsDisabled(e.Value) {
			value = "off"
		}
		doc.Thresholds = append(doc.Thresholds, ThresholdOutput{Name: e.Name, Value: value, Source: e.Source})
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode().Structured() {
		return r.Document(doc)
	}

	r.Header(1, "Thresholds")

	rows := make([][]string, 0, len(doc.Thresholds))
	for _, e := range set.Entries() {
		rows = append(rows, []string{string(e.Name), threshold.FormatValue(e.Value), e.Source.String()})
	}
	r.Table([]string{"Name", "Value", "Source"}, rows)

	if doc.ConfigFile != "" {
		r.Muted("Settings from " + doc.ConfigFile)
	}
	if doc.UsedDefaults {
		r.Muted("No threshold configuration found. Using defaults.")
	}
	return nil
}
