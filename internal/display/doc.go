// Package display renders monitor sessions in the terminal.
//
// The full-screen view is a Bubble Tea program (Model-Update-View). It never
// touches the live resource model: the session hands it immutable frames
// through a Bridge, which forwards them with program.Send, and every
// operator action goes back to the session as an input item on the shared
// inbox channel.
//
// # Pages
//
//	Resources - resources, their volumes, connections and peer volumes,
//	            each with its severity glyph
//	Tasks     - the administrative task queue, with a detail view showing
//	            the command line and captured output
//	Log       - the message log, newest entries last
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C     - Quit
//	r, Ctrl+L     - Repaint
//	Ctrl+R        - Reinitialize (restart the events source)
//	Tab, 1-3      - Switch page
//	j/k, ↑/↓      - Select
//	a             - Action line (resources page)
//	s p t K x     - Suspend, make pending, terminate, kill, remove (tasks page)
//	Enter / Esc   - Open / close task detail
//	?             - Toggle help overlay
//
// When stdout is not a terminal, Plain writes the message log and severity
// changes as text lines instead.
package display
