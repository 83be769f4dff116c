package commands

import (
	"strings"

	"github.com/leapstack-labs/mercury/pkg/threshold"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// thresholdFlag is the flag name for a threshold, e.g. --query-count.
func thresholdFlag(n threshold.Name) string {
	return strings.ReplaceAll(string(n), "_", "-")
}

// addThresholdFlags registers the inline threshold flags on cmd.
func addThresholdFlags(cmd *cobra.Command) {
	cmd.Flags().String(thresholdFlag(threshold.ResponseTimeMS), "", "Response time limit in milliseconds (number or off)")
	cmd.Flags().String(thresholdFlag(threshold.QueryCount), "", "Query count limit (number or off)")
	cmd.Flags().String(thresholdFlag(threshold.NPlusOne), "", "N+1 group size that fails (number or off)")
}

// inlineLayer reads the explicitly set threshold flags as the inline layer.
func inlineLayer(flags *pflag.FlagSet) (threshold.Layer, error) {
	raw := make(map[string]any)
	for _, n := range threshold.Names() {
		name := thresholdFlag(n)
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return nil, err
		}
		raw[string(n)] = v
	}
	return threshold.ParseLayer(raw)
}
