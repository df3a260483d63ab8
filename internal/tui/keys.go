package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Edit     key.Binding
	Toggle   key.Binding
	Save     key.Binding
	Revert   key.Binding
	Add      key.Binding
	Delete   key.Binding
	Reload   key.Binding
	Sort     key.Binding
	Filter   key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Help     key.Binding
	Quit     key.Binding

	// Inside an editing cell.
	Commit key.Binding
	Cancel key.Binding
	Now    key.Binding
	Next   key.Binding
	Prev   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Edit:     key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "edit")),
		Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Save:     key.NewBinding(key.WithKeys("ctrl+s", "s"), key.WithHelp("s", "save")),
		Revert:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "revert")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add row")),
		Delete:   key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete row")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Sort:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort")),
		Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		NextPage: key.NewBinding(key.WithKeys("]", "pgdown"), key.WithHelp("]", "next page")),
		PrevPage: key.NewBinding(key.WithKeys("[", "pgup"), key.WithHelp("[", "prev page")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Commit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "done")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Now:    key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "now")),
		Next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Save, k.Revert, k.Add, k.Delete, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Edit, k.Toggle, k.Save, k.Revert},
		{k.Add, k.Delete, k.Reload},
		{k.Sort, k.Filter, k.NextPage, k.PrevPage},
		{k.Help, k.Quit},
	}
}

// editingKeys is the short help shown while a cell is being edited.
type editingKeys struct{ keyMap }

func (k editingKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Commit, k.Cancel, k.Now, k.Next}
}

func (k editingKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// helpMarkdown is the body of the "?" overlay.
func helpMarkdown(k keyMap) string {
	var b []byte
	b = append(b, "# Keys\n\n| key | action |\n|---|---|\n"...)
	for _, group := range k.FullHelp() {
		for _, kb := range group {
			h := kb.Help()
			b = append(b, "| `"+h.Key+"` | "+h.Desc+" |\n"...)
		}
	}
	b = append(b, "\n## Editing\n\n| key | action |\n|---|---|\n"...)
	for _, kb := range (editingKeys{k}).ShortHelp() {
		h := kb.Help()
		b = append(b, "| `"+h.Key+"` | "+h.Desc+" |\n"...)
	}
	b = append(b, "\nEdited rows are marked and counted until saved. Primary-key columns are read-only.\n"...)
	return string(b)
}
