// Package batch turns a single-item operation into an ordered batch operation.
//
// An Executor applies a set of shared default values to every item (item values
// win on key collision), invokes the wrapped operation once per item with its own
// output Sink, and collects each sink's contents at the item's index. Key
// properties:
//   - result[i] always corresponds to items[i]; no item is dropped or reordered
//   - every item gets a fresh sink, so partial outputs never leak between items
//   - the first failing item aborts the batch and no results are returned
//   - context cancellation is checked before each item
//
// Execution is sequential unless WithConcurrency is used. WithPartialResults opts
// in to returning the results completed before a failure.
package batch
