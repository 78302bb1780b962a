package ir

import (
	"sort"
	"strings"
	"time"
)

const Version = "1.0"

// Rule IDs reserved for synthetic findings produced by the pipeline
// itself rather than by a policy predicate.
const (
	RuleLoaderFailure = "LOADER-0" // file could not be parsed
	RuleEvalFailure   = "EVAL-0"   // predicate panicked on a document
)

// SyntheticCategory is where LOADER-0/EVAL-0 findings land: a parse or
// predicate failure is a gap in audit visibility (category 10).
const SyntheticCategory = 10

type Severity string

const (
	SevCritical Severity = "CRITICAL"
	SevHigh     Severity = "HIGH"
	SevMedium   Severity = "MEDIUM"
	SevLow      Severity = "LOW"
	SevInfo     Severity = "INFO"
)

func SeverityRank(s Severity) int {
	switch s {
	case SevCritical:
		return 5
	case SevHigh:
		return 4
	case SevMedium:
		return 3
	case SevLow:
		return 2
	default:
		return 1 // INFO or unknown
	}
}

func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToUpper(strings.TrimSpace(s))) {
	case SevCritical:
		return SevCritical, true
	case SevHigh:
		return SevHigh, true
	case SevMedium:
		return SevMedium, true
	case SevLow:
		return SevLow, true
	case SevInfo:
		return SevInfo, true
	}
	return "", false
}

type Status string

const (
	StatusCompliant    Status = "COMPLIANT"
	StatusPartial      Status = "PARTIALLY_COMPLIANT"
	StatusNonCompliant Status = "NON_COMPLIANT"
)

// Finding is one concrete violation (or observation) produced by a rule
// against a document. Immutable once created.
type Finding struct {
	RuleID   string   `json:"ruleId"`
	Category int      `json:"category"`
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Location string   `json:"location,omitempty"` // structural path within the document
	Line     int      `json:"line,omitempty"`     // 1-based, 0 = unknown
	Message  string   `json:"message"`
}

type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

func (c *SeverityCounts) Add(s Severity) {
	switch s {
	case SevCritical:
		c.Critical++
	case SevHigh:
		c.High++
	case SevMedium:
		c.Medium++
	case SevLow:
		c.Low++
	default:
		c.Info++
	}
}

func (c SeverityCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low + c.Info
}

// RiskScore is the aggregated result for one OWASP CI/CD category.
type RiskScore struct {
	Category int            `json:"id"`
	Status   Status         `json:"status"`
	Counts   SeverityCounts `json:"counts"`
}

// ComplianceReport is the top-level scan output. Read-only after the
// aggregator produces it.
type ComplianceReport struct {
	ScannedDocuments int         `json:"scannedDocuments"`
	Incomplete       bool        `json:"incomplete,omitempty"`
	Categories       []RiskScore `json:"categories"`
	Findings         []Finding   `json:"findings"`
}

// DocumentInfo is the persisted summary of a scanned document (the node
// tree itself is not stored).
type DocumentInfo struct {
	Path   string `json:"path"`
	Format Format `json:"format"`
}

// Run is the envelope persisted per scan invocation.
type Run struct {
	ID             string           `json:"id"`
	StartedAt      time.Time        `json:"started_at"`
	Root           string           `json:"root,omitempty"`
	EngineVersion  string           `json:"engine_version,omitempty"`
	CatalogVersion string           `json:"catalog_version,omitempty"`
	Documents      []DocumentInfo   `json:"documents,omitempty"`
	Waived         int              `json:"waived,omitempty"`
	Report         ComplianceReport `json:"report"`
}

// SortFindings puts findings in report order: severity descending, then
// category, path, location, rule id, line, message. Every field
// participates so the order is total: one rule can emit several
// findings at the same structural location (one per script line, say),
// and without the final tie-breaks their relative order would depend on
// worker scheduling.
func SortFindings(fs []Finding) {
	sort.Slice(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if ra, rb := SeverityRank(a.Severity), SeverityRank(b.Severity); ra != rb {
			return ra > rb
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Message < b.Message
	})
}
