// Package attribution implements the correlation engine: identity expansion
// through the funnel tool's user registry, ordered evidence-tier matching,
// candidate ranking/deduplication, and per-date report assembly.
//
// Each customer's pipeline is independent and failure-isolated: I/O failures
// inside a tier degrade to empty evidence for the identity that failed, and
// the assembler always emits a report.
package attribution
