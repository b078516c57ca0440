// Package server implements the HTTP and WebSocket surface of chatrelay.
//
// The implementation is organized into specialized files for configuration,
// clients, routing, HTTP handlers and periodic reporting. All chat state lives
// in the relay handler; this package only moves frames between sockets and
// that handler.
package server
