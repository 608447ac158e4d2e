// Package client implements the real-time trade event client.
//
// A Client owns one logical duplex channel to the trade-monitoring backend
// and layers on top of it:
//   - connection lifecycle with exponential-backoff reconnect, capped at a
//     fixed attempt count
//   - wire-level ping/pong heartbeat with forced reconnect on missed acks
//   - challenge/response wallet authentication with single-flight coalescing
//     and silent re-authentication after reconnects
//   - a pool subscription registry replayed after every successful
//     authentication
//   - correlation of history/latest/global-trade queries over a socket that
//     otherwise pushes unsolicited events
//   - listener fan-out for events, errors and connection-state changes
//
// Clients are constructed explicitly and injected; there is no package-level
// shared instance.
package client
