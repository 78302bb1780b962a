package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// CICD-SEC-2: inadequate identity and access management.

func init() {
	Register("static-cloud-credentials", evalStaticCloudCredentials)
	Register("terraform-static-access-key", evalTerraformStaticAccessKey)
}

// Environment variable names that imply a long-lived cloud credential
// instead of short-lived federated token exchange.
var staticKeyRe = regexp.MustCompile(`(?i)^(AWS_SECRET_ACCESS_KEY|AWS_ACCESS_KEY_ID|AZURE_CLIENT_SECRET|GOOGLE_APPLICATION_CREDENTIALS|GCP_SA_KEY)$|(_SECRET_KEY|_ACCESS_KEY)$`)

func evalStaticCloudCredentials(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	doc.Root.Walk(func(path string, n *ir.Node) {
		if n.Kind != ir.MappingNode {
			return
		}
		last := path
		if i := strings.LastIndex(path, "."); i >= 0 {
			last = path[i+1:]
		}
		if last != "env" && last != "variables" {
			return
		}
		for _, key := range n.Keys {
			if !staticKeyRe.MatchString(key) {
				continue
			}
			loc := path + "." + key
			out = append(out, finding(n.Children[key], loc,
				fmt.Sprintf("environment variable %q looks like a long-lived static credential; prefer OIDC token exchange over stored keys", key)))
		}
	})
	return out
}

func evalTerraformStaticAccessKey(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	eachResource(doc.Root, "aws_iam_access_key", func(name string, body *ir.Node) {
		out = append(out, finding(body, resourceLoc("aws_iam_access_key", name),
			fmt.Sprintf("IAM access key %q provisions a long-lived credential; use role assumption with OIDC federation instead", name)))
	})
	return out
}
