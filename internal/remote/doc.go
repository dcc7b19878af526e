// Package remote is the typed wire layer for the streaming service control API.
//
// It owns the JSON shapes exchanged with the service (run status, stream
// configuration, video inventory) and one method per endpoint. Every method
// returns either a decoded value or an error that is a *transport.Error or a
// *DomainError, so callers can turn any failure into a single activity entry.
package remote
