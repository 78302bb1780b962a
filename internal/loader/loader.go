package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codewithboateng/pipelift/internal/ir"
)

type Options struct {
	Include     []string // glob patterns; empty = everything recognized
	Exclude     []string // glob patterns, matched against rel path and basename
	Concurrency int      // parallel file reads; <=0 = sensible default
}

// Result of a load pass. Failures are synthetic LOADER-0 findings for
// files that were recognized but could not be parsed; they flow into
// the report like any other finding. Incomplete is set when the context
// expired before every recognized file was read; documents gathered so
// far are still valid.
type Result struct {
	Documents  []*ir.Document
	Failures   []ir.Finding
	Incomplete bool
}

// Directories that never hold pipeline definitions worth scanning.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".terraform":   true,
}

// Load walks root and parses every recognized CI/IaC file. Loading is
// best-effort: a malformed file becomes one LOADER-0 finding and the
// walk continues. Only an unusable root is an error.
func Load(ctx context.Context, root string, opts Options) (Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Result{}, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("scan root %s: not a directory", root)
	}

	type candidate struct {
		rel    string
		format ir.Format
	}
	var candidates []candidate
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree: skip, partial results are expected
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, rerr := filepath.Rel(root, p)
		if rerr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		format, ok := Detect(rel)
		if !ok {
			return nil
		}
		if len(opts.Include) > 0 && !matchAny(opts.Include, rel) {
			return nil
		}
		if matchAny(opts.Exclude, rel) {
			return nil
		}
		candidates = append(candidates, candidate{rel: rel, format: format})
		return nil
	})
	if walkErr != nil {
		return Result{}, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	conc := opts.Concurrency
	if conc <= 0 {
		conc = 8
	}

	var (
		mu  sync.Mutex
		res Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conc)
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			// An expired deadline degrades to a partial result, never
			// a failed load: remaining files are skipped and the run
			// carries on with what was gathered.
			if gctx.Err() != nil {
				mu.Lock()
				res.Incomplete = true
				mu.Unlock()
				return nil
			}
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(c.rel)))
			if err != nil {
				mu.Lock()
				res.Failures = append(res.Failures, loadFailure(c.rel, err))
				mu.Unlock()
				return nil
			}
			doc, err := Parse(c.rel, c.format, data)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failures = append(res.Failures, loadFailure(c.rel, err))
				return nil
			}
			res.Documents = append(res.Documents, doc)
			return nil
		})
	}
	_ = g.Wait()

	// Collection order depends on goroutine scheduling; sort so the
	// rest of the pipeline sees a stable input.
	sort.Slice(res.Documents, func(i, j int) bool { return res.Documents[i].Path < res.Documents[j].Path })
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Path < res.Failures[j].Path })
	return res, nil
}

// Parse normalizes one file into a Document. Exposed separately so
// tests and fuzzers can drive the parsers without a filesystem walk.
func Parse(rel string, format ir.Format, data []byte) (*ir.Document, error) {
	var (
		root *ir.Node
		err  error
	)
	if format == ir.FormatTerraform {
		root, err = parseHCL(data, rel)
	} else {
		root, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}
	if root.Kind != ir.MappingNode {
		// A top-level scalar or list is not a pipeline definition.
		return nil, fmt.Errorf("%s: top-level structure is not a mapping", rel)
	}
	return &ir.Document{Path: rel, Format: format, Root: root}, nil
}

func loadFailure(rel string, err error) ir.Finding {
	return ir.Finding{
		RuleID:   ir.RuleLoaderFailure,
		Category: ir.SyntheticCategory,
		Severity: ir.SevInfo,
		Path:     rel,
		Message:  fmt.Sprintf("file could not be parsed and was excluded from evaluation: %v", err),
	}
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, rel); ok {
			return true
		}
		if ok, _ := path.Match(p, path.Base(rel)); ok {
			return true
		}
	}
	return false
}
