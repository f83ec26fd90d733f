// Package domain defines the core value types of the attribution engine:
// orders and customers from the CRM, funnel and site events, candidate ad
// identifiers, enriched ad metadata, and the per-date attribution report.
//
// Types here are immutable snapshots; transformations always produce new
// values. This package must stay dependency-free and should never import
// from connectors or handlers.
package domain
