// Package checkpoint persists extraction progress so interrupted runs can
// resume without refetching finished windows.
//
// The protocol has two durable transitions per written window: MarkAttempt
// goes down before any output for the window, and MarkComplete after the
// output is on disk. A checkpoint left with Complete=false therefore always means the
// window's output may be partial and must be redone.
//
// Two backends implement the Store interface: FileStore holds a JSON file
// replaced atomically on every update, and SQLiteStore keeps a single-row
// table for deployments that prefer state outside the output directory.
package checkpoint
