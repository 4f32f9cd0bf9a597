// Package ports declares the interfaces between the gateway core and
// its infrastructure. The application layer in internal/app depends on
// these alone; the concrete SQLite, Redis, HTTP, and filesystem
// implementations live under internal/adapters.
//
//   - [Fetcher] forwards requests to the upstream origin
//   - [SnapshotStore] keeps response snapshots in versioned namespaces
//   - [MutationStore] queues write operations for replay
//   - [StateRepository] persists gateway state across restarts
//   - [ConnectivityProbe] reports whether the upstream is reachable
//   - [Notifier] delivers push notifications to the host
//   - [HTTPClient] abstracts the HTTP transport
//
// Tests substitute in-memory fakes for any of these.
package ports
