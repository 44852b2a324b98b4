// Package query builds composed message-search queries. Given a base query,
// a normalized search term and a filter specification it decides which
// predicates to attach, in what order and with which combinators: a
// case-insensitive substring OR-group over the message body and the contact's
// identifying fields, an inner membership join for group filters, conjunctive
// substring predicates for flow labels, and an inclusive date range fed either
// by absolute dates or by relative date expressions.
//
// Every stage is a pure function over (Query, parameters) -> Query; the Query
// value is copied on write, so concurrent searches never share state. Query
// execution is the storage layer's concern; this package only composes the
// expression.
package query
