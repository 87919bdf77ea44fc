// Package cli implements the drbdmon command-line interface.
//
// The package is organized around Cobra commands, each delegating to a
// command function that takes its dependencies as arguments so it can be
// tested without a terminal:
//
//	drbdmon [monitor]          - Live dashboard (plain event log when piped)
//	drbdmon status             - Load the state once, print it, exit
//	drbdmon exec ACTION TARGET - Run one administrative command
//	drbdmon config init|show   - Manage the config file
//	drbdmon doctor             - Diagnose configuration, tools, SSH and the stream
//	drbdmon completion SHELL   - Generate shell completion scripts
//	drbdmon version            - Print version information
//
// # Sessions
//
// monitor and status both drive monitoring sessions through Loop. A
// session reads the status stream until it ends; Loop decides what comes
// next from the session's finish action: stop, start over at once after
// an operator reinitialize, or start over after restart.delay when the
// events source failed. The task queue, message log and operator input
// channel live in Loop and survive restarts.
//
// # Exit Codes
//
//	0 - Success
//	1 - Error (config, SSH, events source)
//	2 - status found resources with problems
//	N - exec passes through the command's exit status
package cli
