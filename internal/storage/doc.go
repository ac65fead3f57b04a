// Package storage persists the delivery log and the last snapshot of each
// watcher.
//
// Two drivers exist: "file" (JSON Lines log plus one JSON file per snapshot)
// and "sqlite". Only one snapshot per key is ever kept.
package storage
