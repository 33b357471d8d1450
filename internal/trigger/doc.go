// Package trigger provides the re-entrancy guard used by table hooks.
//
// When a hook performs CRUD on the record that triggered it, the nested
// operation would run the same hook chain again and recurse without end.
// The Stack records which (table, operation, record) chains are running;
// a nested operation on an active chain still mutates but skips its hooks.
//
// Stacks are carried in a context.Context and live for one top-level CRUD
// call tree. Concurrent operations each get their own stack, so an
// unrelated operation is never suppressed.
package trigger
