// Package sqlite provides SQLite-backed implementations of the call
// task and lead stores. The pending→calling dispatch edge is expressed
// as a conditional UPDATE so that concurrent dispatches resolve to a
// single winner inside the database.
package sqlite
