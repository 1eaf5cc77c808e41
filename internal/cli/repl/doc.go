// Package repl runs CLI commands interactively.
//
// Each input line is split into arguments (single and double quotes group
// words) and handed to an Executor. The first word may be any unique
// prefix of a known command. History is kept in memory and, when a
// history file is configured, persisted between sessions.
//
// Built-ins: exit, quit, history.
package repl
