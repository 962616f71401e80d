// Package cyrisk provides a generic graph query and mutation engine for
// cyber risk data, exposed over GraphQL.
//
// # Architecture
//
// The module is organized in three layers:
//
//	┌─────────────────────────────────────┐
//	│        GraphQL Gateway              │  Document parsing,
//	│        (gateway/graphql)            │  generic dispatch
//	└─────────────────────────────────────┘
//	           ↓ resolves through
//	┌─────────────────────────────────────┐
//	│          Query Engine               │  Compile, reduce,
//	│           (engine)                  │  paginate, mutate
//	└─────────────────────────────────────┘
//	           ↓ reads and writes
//	┌─────────────────────────────────────┐
//	│        Statement Store              │  In-memory or NATS
//	│          (storage)                  │  request/reply
//	└─────────────────────────────────────┘
//
// Entities are not hard-coded. The vocabulary package holds one descriptor
// per entity type: its predicate bindings, natural keys, owned and
// referenced collections, enums, and derived fields. The engine compiles
// every query and mutation from the descriptor, so adding an entity type is
// a vocabulary change, not an engine change.
//
// # Packages
//
// Core:
//   - vocabulary: entity descriptors, deterministic identity, IRI handling
//   - engine: query compilation, row reduction, cursor pagination, the
//     create/edit/delete/attach/detach mutation pipeline
//   - scoring: CVSS-based risk level computation and remediation
//     consolidation
//   - storage: the statement store contract with in-memory and NATS
//     implementations
//
// Boundary:
//   - gateway/graphql: gqlparser-based resolver and HTTP listener
//   - cmd/cyrisk: the gateway binary
//
// Infrastructure:
//   - config: configuration loading, schema validation, env overrides
//   - errors: structured error taxonomy (invalid, transient, fatal)
//   - metric: Prometheus instrumentation and exposition
//   - natsclient: NATS connection management
package cyrisk
