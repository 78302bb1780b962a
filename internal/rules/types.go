package rules

import "github.com/codewithboateng/pipelift/internal/ir"

// Predicate inspects one document and returns raw findings. Predicates
// are pure: no I/O, no state, same output for the same tree. They fill
// Location/Line/Message only; the engine stamps rule id, category,
// severity and document path from the catalog entry that bound them.
type Predicate func(doc *ir.Document) []ir.Finding
