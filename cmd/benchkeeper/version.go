// SPDX-License-Identifier: MIT
package benchkeeper

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

// Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

type buildInfo struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit"`
	Date      string   `json:"date"`
	GoVersion string   `json:"goVersion"`
	Platform  string   `json:"platform"`
	Tools     []string `json:"tools"`
}

func currentBuildInfo() buildInfo {
	return buildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Tools:     supportedToolNames(),
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentBuildInfo()
		format, _ := cmd.Flags().GetString("format")
		switch strings.ToLower(strings.TrimSpace(format)) {
		case "json":
			writeJSON(cmd, "version json", info)
			return nil
		case "text", "":
		default:
			return fmt.Errorf("unsupported format %q (expected text or json)", format)
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "benchkeeper %s\n", info.Version)
		_, _ = fmt.Fprintf(out, "  commit:  %s\n", info.Commit)
		_, _ = fmt.Fprintf(out, "  built:   %s\n", info.Date)
		_, _ = fmt.Fprintf(out, "  go:      %s\n", info.GoVersion)
		_, _ = fmt.Fprintf(out, "  os/arch: %s\n", info.Platform)
		_, _ = fmt.Fprintf(out, "  tools:   %s\n", strings.Join(info.Tools, ", "))
		return nil
	},
}

func init() {
	versionCmd.Flags().StringP("format", "o", "text", "output format: text, json")
	rootCmd.AddCommand(versionCmd)
}
