// Package app groups the layers of the to-do service.
//
// # Package Structure
//
//	internal/app/
//	├── domain/todo/        # Item and its wire projections
//	├── core/service/       # Error taxonomy and service descriptors
//	├── rules/              # Stateless business rule checks
//	├── storage/            # ItemStore interface and sentinels
//	│   ├── memory/         # In-memory implementation for tests and local runs
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/todos/     # Item service: rule pipeline and state transitions
//	├── httpapi/            # Routes, handlers, error mapping, audit trail
//	├── metrics/            # Prometheus collectors
//	├── system/             # Lifecycle manager for background services
//	└── runtime/            # Wiring and HTTP server lifecycle
//
// # Dependency Direction
//
//	cmd/todo/
//	      │
//	      ▼
//	runtime ──► httpapi ──► services/todos ──► rules ──► domain/todo
//	                              │
//	                              └──► storage (memory | postgres)
//
// Only httpapi translates errors into status codes. The service and rules
// layers return the typed errors from core/service and never inspect
// messages.
package app
