// Package services defines context helpers shared by the transport, state
// synchronizer, and command dispatcher.
//
// The helpers stamp dispatcher verbs, state slice names, and correlation
// identifiers onto a context so log lines and outbound requests can be tied
// back to the operation that caused them.
package services
