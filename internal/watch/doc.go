// Package watch runs poll-diff-notify loops.
//
// A Watcher owns exactly one previous snapshot. Every tick it fetches a new
// snapshot, asks its Watchable whether the pair is worth a notification,
// hands the diff to the notifier, and then replaces the stored snapshot.
// A failed fetch counts as "no data" and never erases the stored snapshot.
//
// Domain packages only implement Differ (comparison of two present
// snapshots); Lift turns that into the nil-aware Watchable the loop uses.
package watch
