package reporting

import (
	"encoding/json"

	"github.com/codewithboateng/pipelift/internal/catalog"
)

type ruleInfo struct {
	ID          string   `json:"id"`
	Category    int      `json:"category"`
	Severity    string   `json:"severity"`
	Formats     []string `json:"formats,omitempty"`
	Summary     string   `json:"summary"`
	Remediation string   `json:"remediation,omitempty"`
}

type rulesPayload struct {
	Version string     `json:"version"`
	Count   int        `json:"count"`
	Rules   []ruleInfo `json:"rules"`
}

// RenderRulesJSON dumps the catalog inventory for `pipelift rules --format json`.
func RenderRulesJSON(cat *catalog.Catalog) ([]byte, error) {
	all := cat.Rules()
	out := rulesPayload{Version: cat.Version, Count: len(all), Rules: make([]ruleInfo, 0, len(all))}
	for _, r := range all {
		formats := make([]string, 0, len(r.Formats))
		for _, f := range r.Formats {
			formats = append(formats, string(f))
		}
		out.Rules = append(out.Rules, ruleInfo{
			ID: r.ID, Category: r.Category, Severity: string(r.Severity),
			Formats: formats, Summary: r.Summary, Remediation: r.Remediation,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}
