package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next      key.Binding
	Prev      key.Binding
	Left      key.Binding
	Right     key.Binding
	Activate  key.Binding
	Run       key.Binding
	Clean     key.Binding
	Category  key.Binding
	ChartType key.Binding
	Export    key.Binding
	Back      key.Binding
	Tour      key.Binding
	Reload    key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Next:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
	Prev:      key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
	Left:      key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "prev option")),
	Right:     key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next option")),
	Activate:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select")),
	Run:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "run analysis")),
	Clean:     key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "raw/cleaned")),
	Category:  key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "next category")),
	ChartType: key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "bar/donut")),
	Export:    key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "export chart")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Tour:      key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "tour")),
	Reload:    key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "retry load")),
	Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Left, k.Run, k.Clean, k.Back, k.Tour, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Left, k.Right, k.Activate},
		{k.Run, k.Clean, k.Back, k.Reload},
		{k.Category, k.ChartType, k.Export},
		{k.Tour, k.Quit},
	}
}

var tourKeys = struct {
	Next key.Binding
	Prev key.Binding
	Skip key.Binding
}{
	Next: key.NewBinding(key.WithKeys("enter", "right")),
	Prev: key.NewBinding(key.WithKeys("left")),
	Skip: key.NewBinding(key.WithKeys("esc")),
}
