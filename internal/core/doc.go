// Package core provides the business logic for exploring an uploaded CSV.
//
// This package is the heart of the explorer, containing all domain logic
// independent of any UI or transport layer. It can be used by web handlers,
// the CLI, or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Table: an immutable, in-memory grid of typed [Value]s parsed from CSV or XLSX.
//   - ViewState: the active equality filters, text searches and derived columns.
//   - BuildView: a pure function producing the visible table from a base table
//     and a ViewState. Every action recomputes the view through it.
//   - Session: the per-browser context object holding one base table and its
//     ViewState. Sessions live in a [SessionStore] with a TTL.
//   - Service: the entry point used by the web layer (upload, filter, derive,
//     export, statistics).
//
// # Session Lifecycle
//
//	Empty --upload--> Loaded --filter/derive--> View --reset--> Loaded
//
// A successful upload replaces the base table and clears every filter and
// derived column. A failed action leaves the session untouched.
//
// # Arithmetic
//
// Derived columns are computed with arbitrary-precision decimals. Division by
// zero yields the NaN sentinel for that row and is counted, not raised.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE007: File errors (size, format, empty, row limit)
//   - ARITH001-ARITH003: Arithmetic errors (type mismatch, division by zero)
//   - COL001-COL002: Column errors (unknown, duplicate)
//   - SESS001-SESS003: Session errors (expired, capacity, nothing loaded)
//   - UPL002-UPL005: Upload errors (busy, cancelled, timeout)
package core
