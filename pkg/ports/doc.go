/*
Package ports defines the driven ports (interfaces) of botflow.

These interfaces decouple the engine and the HTTP/MCP surfaces from storage,
so the same code runs against memory, SQLite, Redis or plain files.

# Key Interfaces

  - FlowStore: Persists flow documents and answers "which flow is the latest".
  - SessionStore: Persists simulated conversations (domain.Session).
  - DistributedLocker: Provides distributed locking for concurrent session access.
  - StatelessEngine: The execution core, implemented by internal/runtime.

The Run*Contract helpers are shared test suites every adapter runs against
itself.
*/
package ports
