// Package entity persists kind-tagged records in SQLite and exposes a typed,
// insertion-ordered collection API on top of them.
//
// The Store owns a single flat (kind, id) namespace. Every record carries a
// JSON state payload and a monotonically increasing sequence number that
// doubles as the per-kind index backing cursor pagination and seeding.
// Collection wraps the store for one record type: create, get, mutate,
// delete, paginated list, and idempotent seed bootstrap.
//
// The store is the single source of truth for record state; no component
// reads or writes payloads around it. Mutations on the same id serialize,
// so two concurrent Mutate calls never lose an update.
package entity
