package showcase

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Run   key.Binding
	Reset key.Binding
	Quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Run: key.NewBinding(
			key.WithKeys("enter", "s"),
			key.WithHelp("enter", "run inference"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r", "esc"),
			key.WithHelp("r", "reset"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Reset, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
