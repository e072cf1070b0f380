// Package syncstate remembers when the last incremental sync ran.
//
// The cursor is a single unix timestamp kept in a small key/value store,
// either a JSON file or a bbolt database. Tracker reads it, asks the catalog
// for everything updated since, hands the results to the context stage and
// then records the time the run started.
//
// The cursor is deliberately pessimistic: a missing or unreadable cursor means
// a full resync, and a failure to write it only means the next run covers the
// same window again. Both are safe because downloads are idempotent.
package syncstate
