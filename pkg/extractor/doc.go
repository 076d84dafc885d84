// Package extractor orchestrates a checkpointed extraction run.
//
// A run partitions the requested time range into fixed-size fetch windows,
// queries the source for each window, and appends the rows to per-period
// bucket files. Progress is checkpointed around every write: once a window
// has rows, an attempt marker goes down durably before its output is
// touched, and a complete marker follows once the bucket file has been
// replaced atomically. Fetch failures and empty windows leave the
// checkpoint untouched. Interruption at any instant therefore loses at
// most one window, and a resumed run redoes everything after the last
// confirmed write.
//
// Resume behavior is governed by a policy: continue picks up from the
// checkpoint, overwrite purges previous output and starts over, and abort
// refuses to run while a checkpoint exists. Resolve implements the decision
// as a pure function so it can be tested without any I/O.
package extractor
