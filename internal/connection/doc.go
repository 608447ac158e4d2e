// Package connection provides the WebSocket transport for the trade feed
// client.
//
// A Socket is one physical duplex channel: it owns the read loop and write
// serialization and surfaces raw messages and transport errors on channels.
// Lifecycle policy (reconnection, heartbeat, authentication) lives one layer
// up in package client; sockets are torn down and rebuilt wholesale on every
// reconnect, never partially reused.
package connection
