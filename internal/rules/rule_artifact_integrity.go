package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// CICD-SEC-9: improper artifact integrity validation.

func init() {
	Register("deploy-image-by-tag", evalDeployImageByTag)
	Register("terraform-registry-mutable-tags", evalRegistryMutableTags)
	Register("terraform-registry-no-scan", evalRegistryNoScan)
}

var deployCmdRe = regexp.MustCompile(`\b(docker\s+push|kubectl\s+set\s+image|helm\s+upgrade|gcloud\s+run\s+deploy)\b`)

func evalDeployImageByTag(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	eachScriptLine(doc, func(path string, n *ir.Node, line string) {
		if !deployCmdRe.MatchString(line) {
			return
		}
		for _, tok := range strings.Fields(line) {
			if strings.HasPrefix(tok, "-") || !strings.Contains(tok, "/") {
				continue
			}
			if _, tagged := imageTag(tok); !tagged || hasDigest(tok) {
				continue
			}
			out = append(out, finding(n, path,
				fmt.Sprintf("deploy command ships %q by mutable tag; reference the image by content digest", tok)))
			break
		}
	})
	return out
}

func evalRegistryMutableTags(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	eachResource(doc.Root, "aws_ecr_repository", func(name string, body *ir.Node) {
		if strings.EqualFold(body.Child("image_tag_mutability").Scalar(), "IMMUTABLE") {
			return
		}
		out = append(out, finding(body, resourceLoc("aws_ecr_repository", name),
			fmt.Sprintf("registry %q allows tag overwrites; set image_tag_mutability = \"IMMUTABLE\"", name)))
	})
	return out
}

func evalRegistryNoScan(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	eachResource(doc.Root, "aws_ecr_repository", func(name string, body *ir.Node) {
		scan := body.Child("image_scanning_configuration")
		if scan != nil && scan.Kind == ir.SequenceNode {
			scan = scan.At(0)
		}
		if scan.Child("scan_on_push").IsTrue() {
			return
		}
		out = append(out, finding(body, resourceLoc("aws_ecr_repository", name),
			fmt.Sprintf("registry %q does not scan pushed images; enable image_scanning_configuration.scan_on_push", name)))
	})
	return out
}
