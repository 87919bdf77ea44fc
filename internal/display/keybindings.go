package display

import "github.com/charmbracelet/bubbles/key"

// PageID identifies a page of the dashboard.
type PageID int

const (
	PageResources PageID = iota
	PageTasks
	PageLog
)

// String returns the page title.
func (p PageID) String() string {
	switch p {
	case PageResources:
		return "Resources"
	case PageTasks:
		return "Tasks"
	case PageLog:
		return "Log"
	default:
		return "unknown"
	}
}

// Next cycles to the next page.
func (p PageID) Next() PageID {
	return PageID((int(p) + 1) % pageCount)
}

const pageCount = 3

type keyMap struct {
	Quit        key.Binding
	Repaint     key.Binding
	Reinit      key.Binding
	NextPage    key.Binding
	Resources   key.Binding
	Tasks       key.Binding
	Log         key.Binding
	Up          key.Binding
	Down        key.Binding
	Top         key.Binding
	Bottom      key.Binding
	Open        key.Binding
	Back        key.Binding
	Help        key.Binding
	Action      key.Binding
	Suspend     key.Binding
	MakePending key.Binding
	Terminate   key.Binding
	Kill        key.Binding
	Remove      key.Binding
	Confirm     key.Binding
	Cancel      key.Binding
}

var keys = keyMap{
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Repaint:     key.NewBinding(key.WithKeys("r", "ctrl+l"), key.WithHelp("r", "repaint")),
	Reinit:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reinitialize")),
	NextPage:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next page")),
	Resources:   key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "resources")),
	Tasks:       key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "tasks")),
	Log:         key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "log")),
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Top:         key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("home", "first")),
	Bottom:      key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("end", "last")),
	Open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Action:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "action")),
	Suspend:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "suspend")),
	MakePending: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "make pending")),
	Terminate:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "terminate")),
	Kill:        key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "kill")),
	Remove:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
	Confirm:     key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
	Cancel:      key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "cancel")),
}

// shortHelp returns the footer bindings for a page.
func (k keyMap) shortHelp(p PageID) []key.Binding {
	switch p {
	case PageResources:
		return []key.Binding{k.Quit, k.NextPage, k.Up, k.Down, k.Action, k.Help}
	case PageTasks:
		return []key.Binding{k.Quit, k.NextPage, k.Open, k.Suspend, k.MakePending, k.Terminate, k.Remove, k.Help}
	default:
		return []key.Binding{k.Quit, k.NextPage, k.Up, k.Down, k.Help}
	}
}

// fullHelp groups every binding for the help overlay.
func (k keyMap) fullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Repaint, k.Reinit, k.Help},
		{k.NextPage, k.Resources, k.Tasks, k.Log},
		{k.Up, k.Down, k.Top, k.Bottom, k.Open, k.Back},
		{k.Action},
		{k.Suspend, k.MakePending, k.Terminate, k.Kill, k.Remove},
	}
}
