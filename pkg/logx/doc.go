// Package logx wraps zerolog for chombot.
//
// Console lines are short and human readable, the optional log file is JSON,
// and records at or above the chat sink's level are forwarded (rate limited)
// to the operator chat so watcher failures show up next to the updates.
package logx
