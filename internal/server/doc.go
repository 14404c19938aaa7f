// Package server wires and runs the application's transport layer.
//
// It owns the HTTP server lifecycle, including startup, signal handling and
// graceful shutdown, and retires the realtime broadcast hub once the listener
// stops accepting new connections.
package server
