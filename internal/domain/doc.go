// Package domain contains the core domain entities and value objects for logtap.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (processes, file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [Record]: A single captured log entry (header fields plus message body)
//   - [Priority]: The ordered severity of a record (verbose through assert)
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction
//   - Free of infrastructure dependencies
//   - Testable without mocks or external systems
package domain
