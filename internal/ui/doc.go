// Package ui provides styled output for drbdmon's line-oriented commands
// (status, exec and the plain monitor), as opposed to the full-screen
// dashboard in package display.
//
// Colors are ANSI codes so they follow the terminal's theme:
//
//	ColorSuccess (green)  - NORM, successful tasks
//	ColorInfo    (cyan)   - MARK, informational messages
//	ColorWarning (yellow) - WARN
//	ColorError   (red)    - ALERT, failed tasks
//	ColorMuted   (gray)   - timing, secondary text
//
// Use Spinner while waiting on a task:
//
//	s := ui.NewSpinner("Connect, resource r0", os.Stderr)
//	s.Start()
//	// ... wait ...
//	s.Success() // or s.Fail()
package ui
