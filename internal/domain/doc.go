// Package domain holds the gateway's core types and the pure logic on
// them. Nothing here touches HTTP servers, SQLite, Redis, or logging;
// everything is testable without mocks.
//
//   - [Snapshot] is a stored copy of an upstream response
//   - [Mutation] is a queued write awaiting replay against the upstream
//   - [Namespace] names a versioned snapshot namespace
//   - [Rule] maps request patterns to caching strategies, in order
//   - [Notification] is a push payload relayed to the host
//   - [GatewayState] is the state persisted across restarts
//
// The default routing rules and queue routes also live here, since they
// are plain data plus matching logic.
package domain
