package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// RenderJSON serializes a compliance report with stable field names.
// Returns bytes; the caller decides where they go.
func RenderJSON(report ir.ComplianceReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

func WriteJSON(runID, outDir string, run *ir.Run) (string, error) {
	path := filepath.Join(outDir, runID+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return "", err
	}
	return path, nil
}
