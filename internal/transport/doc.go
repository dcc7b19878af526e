// Package transport issues HTTP requests against the streaming service and
// normalizes every failure into a single *Error value.
//
// A request succeeds only when the service answers 2xx with a JSON body (an
// empty body counts as JSON null). Network failures, non-2xx statuses, and
// undecodable bodies all surface as *Error with a Kind describing which of
// the three happened. Requests are never retried.
package transport
