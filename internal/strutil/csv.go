// SPDX-License-Identifier: MIT
package strutil

import "strings"

// SplitCSV splits a comma-separated list, trimming whitespace and dropping
// empty items.
func SplitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
