package reporting

import (
	"fmt"
	"html"
	"os"
	"path/filepath"

	"github.com/codewithboateng/pipelift/internal/ir"
)

func WriteHTML(runID, outDir string, run *ir.Run) (string, error) {
	path := filepath.Join(outDir, runID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	rep := run.Report

	// Head + styles
	fmt.Fprintf(f, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", html.EscapeString(runID))
	fmt.Fprint(f, "<style>body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4} table{border-collapse:collapse;margin:8px 0} td,th{border:1px solid #ddd;padding:6px} h1,h2{margin:6px 0 4px} .dim{color:#666} .mono{font-family:ui-monospace,Menlo,Consolas,monospace} .bad{color:#b00} .part{color:#b60}</style>")
	fmt.Fprint(f, "</head><body>")

	// Title + summary
	fmt.Fprintf(f, "<h1>pipelift report – <span class='mono'>%s</span></h1>", html.EscapeString(runID))
	fmt.Fprintf(f, "<p>Documents: %d &nbsp; Findings: %d", rep.ScannedDocuments, len(rep.Findings))
	if run.Waived > 0 {
		fmt.Fprintf(f, " &nbsp; Waived: %d", run.Waived)
	}
	fmt.Fprint(f, "</p>")
	if rep.Incomplete {
		fmt.Fprint(f, "<p class='bad'><b>Partial result:</b> evaluation hit the deadline before all documents were checked.</p>")
	}
	if run.CatalogVersion != "" {
		fmt.Fprintf(f, "<p class='dim'>Catalog: %s</p>", html.EscapeString(run.CatalogVersion))
	}

	// Posture table
	fmt.Fprint(f, "<h2>Compliance Posture</h2><table><tr><th>Category</th><th>Status</th><th>Critical</th><th>High</th><th>Medium</th><th>Low</th><th>Info</th></tr>")
	for _, c := range rep.Categories {
		cls := ""
		switch c.Status {
		case ir.StatusNonCompliant:
			cls = " class='bad'"
		case ir.StatusPartial:
			cls = " class='part'"
		}
		fmt.Fprintf(f, "<tr><td>CICD-SEC-%d %s</td><td%s>%s</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td></tr>",
			c.Category,
			html.EscapeString(CategoryTitle(c.Category)),
			cls,
			html.EscapeString(string(c.Status)),
			c.Counts.Critical, c.Counts.High, c.Counts.Medium, c.Counts.Low, c.Counts.Info,
		)
	}
	fmt.Fprint(f, "</table>")

	// All findings
	if len(rep.Findings) > 0 {
		fmt.Fprint(f, "<h2>All Findings</h2><table><tr><th>Severity</th><th>Rule</th><th>File</th><th>Location</th><th>Message</th></tr>")
		for _, fd := range rep.Findings {
			file := fd.Path
			if fd.Line > 0 {
				file = fmt.Sprintf("%s:%d", fd.Path, fd.Line)
			}
			fmt.Fprintf(f, "<tr><td>%s</td><td class='mono'>%s</td><td class='mono'>%s</td><td class='mono'>%s</td><td>%s</td></tr>",
				html.EscapeString(string(fd.Severity)),
				html.EscapeString(fd.RuleID),
				html.EscapeString(file),
				html.EscapeString(fd.Location),
				html.EscapeString(fd.Message),
			)
		}
		fmt.Fprint(f, "</table>")
	} else {
		fmt.Fprint(f, "<h2>All Findings</h2><p class='dim'>No findings.</p>")
	}

	fmt.Fprint(f, "</body></html>")
	return path, nil
}
