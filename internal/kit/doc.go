// Package kit wraps the KitOps `kit` command-line tool.
//
// Each Client method builds the argument vector for one kit subcommand,
// validates ModelKit references up front, echoes the command when verbose
// and runs it through an Executor. A non-zero exit is reported as a
// *CommandError; Remove is the exception and ignores it.
//
// Extra flags are passed as Flags and checked against the subcommand's
// accepted flags before anything runs.
package kit
