// SPDX-License-Identifier: MIT
package benchkeeper

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/skaphos/benchkeeper/internal/model"
)

// logOutputWriteFailure records non-fatal output write/flush failures.
// Reports are often piped into tools that close early (for example `head`),
// so we log and continue instead of failing the run.
func logOutputWriteFailure(cmd *cobra.Command, context string, err error) {
	if err == nil {
		return
	}
	debugf(cmd, "ignored output write failure (%s): %v", context, err)
}

// writeJSON writes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, context string, v any) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	logOutputWriteFailure(cmd, context, enc.Encode(v))
}

func supportedToolNames() []string {
	names := make([]string, 0, len(model.AllTools))
	for _, tool := range model.AllTools {
		names = append(names, string(tool))
	}
	return names
}
