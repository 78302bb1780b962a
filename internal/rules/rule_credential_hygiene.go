package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// CICD-SEC-6: insufficient credential hygiene.

func init() {
	Register("secret-echoed-to-log", evalSecretEchoedToLog)
	Register("plain-secret-variable", evalPlainSecretVariable)
}

var (
	logCmdRe       = regexp.MustCompile(`(?i)\b(echo|printf|curl|wget|set\s+-x)\b`)
	shellSecretRe  = regexp.MustCompile(`(?i)\becho\b.*\$[({]?[A-Z0-9_]*(SECRET|TOKEN|PASSWORD|PASSWD|API_KEY)`)
	secretNameRe   = regexp.MustCompile(`(?i)(SECRET|TOKEN|PASSWORD|PASSWD|API_KEY|PRIVATE_KEY)`)
)

func evalSecretEchoedToLog(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	eachScriptLine(doc, func(path string, n *ir.Node, line string) {
		switch {
		case secretExprRe.MatchString(line) && logCmdRe.MatchString(line):
			out = append(out, finding(n, path,
				"secret is interpolated into a command that writes to the build log; pass it via env and rely on masking"))
		case doc.Format != ir.FormatGithubActions && shellSecretRe.MatchString(line):
			out = append(out, finding(n, path,
				"command echoes a secret-named variable into the build log; remove the echo or mask the value"))
		}
	})
	return out
}

// evalPlainSecretVariable flags secret-named variables declared with a
// literal value in the pipeline file itself.
func evalPlainSecretVariable(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	doc.Root.Walk(func(path string, n *ir.Node) {
		if n.Kind != ir.MappingNode {
			return
		}
		last := path
		if i := strings.LastIndex(path, "."); i >= 0 {
			last = path[i+1:]
		}
		if last != "variables" {
			return
		}
		for _, key := range n.Keys {
			val := n.Children[key]
			if val.Kind != ir.ScalarNode {
				continue
			}
			v := strings.TrimSpace(val.Value)
			if v == "" || strings.HasPrefix(v, "$") {
				continue // reference to an external/masked variable
			}
			if secretNameRe.MatchString(key) {
				out = append(out, finding(val, path+"."+key,
					fmt.Sprintf("variable %q carries a literal secret value in the pipeline definition; move it to the platform secret store", key)))
			}
		}
	})
	return out
}
