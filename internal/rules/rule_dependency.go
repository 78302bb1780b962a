package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// CICD-SEC-3: dependency chain abuse.

func init() {
	Register("unpinned-container-image", evalUnpinnedContainerImage)
	Register("package-install-without-lockfile", evalInstallWithoutLockfile)
}

func evalUnpinnedContainerImage(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	eachImageRef(doc, func(path string, n *ir.Node, ref string) {
		if hasDigest(ref) {
			return
		}
		tag, ok := imageTag(ref)
		switch {
		case !ok:
			out = append(out, finding(n, path,
				fmt.Sprintf("image %q has no tag and resolves to a mutable default; pin a tag or digest", ref)))
		case tag == "latest":
			out = append(out, finding(n, path,
				fmt.Sprintf("image %q uses the mutable :latest tag; pin a specific tag or digest", ref)))
		}
	})
	return out
}

var (
	npmInstallRe  = regexp.MustCompile(`\bnpm\s+(install|i)\b`)
	pipInstallRe  = regexp.MustCompile(`\bpip3?\s+install\b`)
	curlPipeRe    = regexp.MustCompile(`\bcurl\b.*\|\s*(sudo\s+)?(ba)?sh\b`)
	pipRequireRe  = regexp.MustCompile(`\s-r\s`)
)

func evalInstallWithoutLockfile(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	eachScriptLine(doc, func(path string, n *ir.Node, line string) {
		switch {
		case curlPipeRe.MatchString(line):
			out = append(out, finding(n, path,
				"command pipes a remote script straight into a shell; fetch, verify, then execute"))
		case npmInstallRe.MatchString(line) && !strings.Contains(line, "npm ci"):
			out = append(out, finding(n, path,
				"npm install resolves dependencies freshly; use npm ci so the lockfile is authoritative"))
		case pipInstallRe.MatchString(line) && !pipRequireRe.MatchString(line):
			out = append(out, finding(n, path,
				"pip install without a pinned requirements file pulls unverified versions; install from a hashed requirements file"))
		}
	})
	return out
}
