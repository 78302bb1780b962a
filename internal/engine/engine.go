// Package engine runs the rule catalog against loaded documents. Rules
// are pure and the inputs immutable, so evaluation fans out across a
// worker pool with no locking beyond result collection. Fault isolation
// is the central property: one rule blowing up on one document becomes
// a single EVAL-0 finding, never a failed run.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/codewithboateng/pipelift/internal/catalog"
	"github.com/codewithboateng/pipelift/internal/ir"
)

type Options struct {
	Workers int // <=0 = GOMAXPROCS
}

type Result struct {
	Findings []ir.Finding
	// Incomplete is set when the context deadline expired before every
	// document was evaluated. Findings gathered so far are still valid.
	Incomplete bool
}

// Evaluate runs every applicable rule against every document. The
// returned findings are in canonical sorted order regardless of worker
// count or scheduling, so equal inputs produce equal output.
func Evaluate(ctx context.Context, docs []*ir.Document, cat *catalog.Catalog, opts Options) Result {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(docs) {
		workers = len(docs)
	}
	if len(docs) == 0 {
		return Result{}
	}

	jobs := make(chan *ir.Document)
	var (
		mu         sync.Mutex
		all        []ir.Finding
		incomplete bool
		wg         sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				fs := evalDocument(doc, cat)
				mu.Lock()
				all = append(all, fs...)
				mu.Unlock()
			}
		}()
	}

feed:
	for _, doc := range docs {
		// Deadline check gets priority over the send so an expired
		// context never feeds another document.
		select {
		case <-ctx.Done():
			incomplete = true
			break feed
		default:
		}
		select {
		case jobs <- doc:
		case <-ctx.Done():
			incomplete = true
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	ir.SortFindings(all)
	return Result{Findings: all, Incomplete: incomplete}
}

func evalDocument(doc *ir.Document, cat *catalog.Catalog) []ir.Finding {
	var out []ir.Finding
	for _, rule := range cat.ForFormat(doc.Format) {
		out = append(out, evalRule(rule, doc)...)
	}
	return out
}

// evalRule runs one predicate on one document, stamping catalog
// metadata onto the raw findings. A panic inside the predicate is
// confined to this (rule, document) pair.
func evalRule(rule catalog.Rule, doc *ir.Document) (out []ir.Finding) {
	defer func() {
		if r := recover(); r != nil {
			out = []ir.Finding{{
				RuleID:   ir.RuleEvalFailure,
				Category: ir.SyntheticCategory,
				Severity: ir.SevInfo,
				Path:     doc.Path,
				Location: rule.ID, // distinguishes failures of different rules on one document
				Message:  fmt.Sprintf("rule %s failed on this document and was skipped: %v", rule.ID, r),
			}}
		}
	}()

	raw := rule.Eval(doc)
	if len(raw) == 0 {
		return nil
	}
	out = make([]ir.Finding, 0, len(raw))
	for _, f := range raw {
		f.RuleID = rule.ID
		f.Category = rule.Category
		f.Severity = rule.Severity
		f.Path = doc.Path
		out = append(out, f)
	}
	return out
}
