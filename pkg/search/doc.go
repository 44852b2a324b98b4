// Package search wires the query-building pipeline together for callers: it
// normalizes the raw term, attaches the free-text predicate and dispatches
// the filter specification, returning the composed query for the storage
// layer to execute. It also parses HTTP query parameters into search
// arguments for the API layer.
package search
