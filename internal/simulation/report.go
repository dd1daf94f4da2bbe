package simulation

import (
	"fmt"
	"sort"
	"strings"
)

// FormatReport renders a result as markdown for chat surfaces.
func FormatReport(r *Result) string {
	if r.Status != StatusCompleted {
		return fmt.Sprintf("Simulation failed: %s", r.ErrorMessage)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("# %s\n\n", r.Title))
	builder.WriteString(fmt.Sprintf("**Idea:** %s\n\n", r.IdeaText))

	builder.WriteString(fmt.Sprintf("**Sentiment (%d personas):**\n", len(r.Responses)))
	for _, s := range Sentiments {
		stat := r.Breakdown.Bucket(s)
		builder.WriteString(fmt.Sprintf("- %s: %s%% (%d)\n", s, stat.Percentage, stat.Count))
	}

	builder.WriteString("\n**Recommendation:**\n")
	builder.WriteString(r.Recommendation)
	builder.WriteString("\n")

	for _, s := range Sentiments {
		fields := r.Distribution[s]
		if len(fields) == 0 {
			continue
		}
		builder.WriteString(fmt.Sprintf("\n**Who said %s:**\n", s))
		for _, field := range DemographicFields {
			counts := fields[field]
			if len(counts) == 0 {
				continue
			}
			builder.WriteString(fmt.Sprintf("- %s: %s\n", field, formatCounts(counts)))
		}
	}

	return builder.String()
}

// formatCounts orders values by count, then by name.
func formatCounts(counts map[string]int) string {
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		if counts[values[i]] != counts[values[j]] {
			return counts[values[i]] > counts[values[j]]
		}
		return values[i] < values[j]
	})

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%s (%d)", v, counts[v])
	}
	return strings.Join(parts, ", ")
}
