// Package scoring computes importance and urgency over a WBS forest.
//
// Aggregate is the core pass: effective scores are the maximum of a node's
// own score and every descendant's, so a parent is never ranked below its
// most pressing child. The pass is pure and idempotent.
//
// Own scores come from explicit values on the node. Leaves that carry raw
// features and lack an explicit score get one derived by a Calculator in
// the tree's scale; derived values feed only the effective fields, so they
// are recomputed on every pass. Scale describes the range in use and
// converts to the unit range expected by the priority package.
//
// Service wraps a full pass with OpenTelemetry tracing, Prometheus metrics
// and zap logging.
package scoring
