package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/ianlancetaylor/demangle"
	"github.com/spf13/cobra"

	"objdis/internal/dump"
	"objdis/internal/listing"
	"objdis/internal/mips"
	"objdis/internal/objdis/log"
	"objdis/internal/objdis/styles"
	"objdis/internal/psyq"
)

var browseCmd = &cobra.Command{
	Use:   "browse [file]",
	Short: "Explore a listing interactively",
	Long: `Browse the code sections of an object or library in a terminal UI. Every
word is shown with its offset, its bytes and a short description of the
fields a relocation or branch touches.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		alt, _ := cmd.Flags().GetBool("alt-gte")
		path, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}

		program := tea.NewProgram(
			newBrowseModel(path, alt),
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)
		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

type viewMode int

const (
	viewListing viewMode = iota
	viewLabels
)

// codeSection is one emitted section of a loaded object.
type codeSection struct {
	name  string
	words []listing.Word
}

type loadedObject struct {
	name     string
	sections []codeSection
}

type labelItem struct {
	object    string
	section   string
	offset    uint32
	name      string
	demangled string
	line      int
}

func (i labelItem) Title() string {
	return fmt.Sprintf("%s %s+%X  %s", i.object, i.section, i.offset, i.demangled)
}

func (i labelItem) Description() string { return "" }

func (i labelItem) FilterValue() string {
	return i.object + " " + i.name + " " + i.demangled
}

type labelDelegate struct{}

func (d labelDelegate) Height() int                               { return 1 }
func (d labelDelegate) Spacing() int                              { return 0 }
func (d labelDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d labelDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(labelItem)
	if !ok {
		return
	}

	indicator := " "
	offsetStyle := styles.OffsetStyle
	if index == m.Index() {
		indicator = ">"
		offsetStyle = styles.SelectedStyle
	}

	fmt.Fprintf(w, " %s  %s  %s",
		indicator,
		offsetStyle.Render(fmt.Sprintf("%s %s+%X", i.object, i.section, i.offset)),
		styles.LabelStyle.Render(i.demangled))
}

type loadedMsg struct {
	objects []loadedObject
	err     error
}

// loadCmd parses every object in path and splits its code sections into
// listing words, in emission order.
func loadCmd(path string) tea.Cmd {
	return func() tea.Msg {
		defer log.RecoverPanic("browse.load", nil)

		var objects []loadedObject
		err := dump.Each(path, func(name string, reg *psyq.Registry) error {
			objects = append(objects, loadObject(name, reg))
			return nil
		})
		return loadedMsg{objects: objects, err: err}
	}
}

func loadObject(name string, reg *psyq.Registry) loadedObject {
	obj := loadedObject{name: name}
	for _, s := range reg.DumpOrder() {
		if s.ID == 0 || !s.IsCode() {
			continue
		}
		obj.sections = append(obj.sections, codeSection{name: s.Name, words: listing.Words(s)})
	}
	return obj
}

type browseModel struct {
	viewport viewport.Model
	labels   list.Model
	spinner  spinner.Model
	mode     viewMode
	path     string
	alt      bool
	objects  []loadedObject
	items    []labelItem
	err      error
	loading  bool
	width    int
	height   int
}

func newBrowseModel(path string, alt bool) browseModel {
	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	labels := list.New([]list.Item{}, labelDelegate{}, 80, 24)
	labels.SetShowStatusBar(false)
	labels.SetFilteringEnabled(true)
	labels.Title = "Labels"
	labels.Styles.Title = styles.TitleStyle.MarginLeft(2)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SelectedStyle

	m := browseModel{
		viewport: vp,
		labels:   labels,
		spinner:  s,
		mode:     viewListing,
		path:     path,
		alt:      alt,
		loading:  true,
		width:    80,
		height:   24,
	}
	m.updateContent()
	return m
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(loadCmd(m.path), m.spinner.Tick)
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		m.objects = msg.objects
		m.err = msg.err
		m.updateContent()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateContent()
		return m, cmd

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.viewport.SetWidth(msg.Width)
			m.viewport.SetHeight(msg.Height - 2)
			m.labels.SetWidth(msg.Width)
			m.labels.SetHeight(msg.Height - 2)
			m.updateContent()
		}

	case tea.KeyMsg:
		if m.mode == viewLabels && m.labels.FilterState() == list.Filtering {
			if k := msg.String(); k == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}
		if next, handled, quit := m.handleKey(msg.String()); handled {
			if quit {
				return next, tea.Quit
			}
			return next, nil
		}
	}

	switch m.mode {
	case viewLabels:
		m.labels, cmd = m.labels.Update(msg)
	default:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// handleKey applies the browser's own key bindings. Keys it does not handle
// go to the active view.
func (m browseModel) handleKey(key string) (next browseModel, handled, quit bool) {
	switch key {
	case "q", "ctrl+c":
		return m, true, true
	case "tab", "shift+tab":
		if m.mode == viewListing && len(m.items) > 0 {
			m.mode = viewLabels
		} else {
			m.mode = viewListing
		}
		return m, true, false
	case "a":
		if m.mode == viewListing {
			m.alt = !m.alt
			m.updateContent()
			return m, true, false
		}
	case "enter":
		if m.mode == viewLabels {
			if item, ok := m.labels.SelectedItem().(labelItem); ok {
				m.mode = viewListing
				m.viewport.SetYOffset(item.line)
			}
			return m, true, false
		}
	}
	return m, false, false
}

func (m browseModel) View() string {
	var content, menu string
	switch m.mode {
	case viewLabels:
		content = m.labels.View()
		menu = " Enter: jump to label • /: filter • Tab: listing • Q: quit "
	default:
		content = m.viewport.View()
		gte := "standard"
		if m.alt {
			gte = "alternate"
		}
		menu = fmt.Sprintf(" Tab: labels • A: GTE names (%s) • Q: quit ", gte)
	}
	return content + "\n" + styles.MenuStyle.Width(m.width).Render(menu)
}

// header renders the markdown title block shown above the listing.
func (m *browseModel) header() string {
	lines := []string{"; " + filepath.Base(m.path)}
	switch {
	case m.loading:
	case m.err != nil:
		lines = append(lines, "; error: "+m.err.Error())
	default:
		lines = append(lines, fmt.Sprintf("; %d object(s)", len(m.objects)))
	}
	markdown := fmt.Sprintf("# Objdis\n\n```\n%s\n```", strings.Join(lines, "\n"))
	if m.loading {
		markdown += fmt.Sprintf("\n\n%s Loading...", m.spinner.View())
	}

	width := m.width
	if width == 0 {
		width = 80
	}
	renderer, err := styles.MarkdownRenderer(width - 2)
	if err != nil {
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimSuffix(rendered, "\n")
}

func (m *browseModel) updateContent() {
	header := m.header()
	body, items := renderWords(m.objects, m.alt, strings.Count(header, "\n")+1)
	m.viewport.SetContent(header + "\n" + body)

	m.items = items
	listItems := make([]list.Item, len(items))
	for i, it := range items {
		listItems[i] = it
	}
	m.labels.SetItems(listItems)
	m.labels.Title = fmt.Sprintf("Labels (%d total)", len(items))
}

// renderWords lays out one line per label and per word. The label items it
// returns record the viewport line of each label, counting from first.
func renderWords(objects []loadedObject, alt bool, first int) (string, []labelItem) {
	var lines []string
	var items []labelItem

	for _, obj := range objects {
		lines = append(lines, "", styles.TitleStyle.Render(obj.name))
		for _, s := range obj.sections {
			for _, w := range s.words {
				for _, label := range w.Labels {
					demangled := demangle.Filter(label)
					items = append(items, labelItem{
						object:    obj.name,
						section:   s.name,
						offset:    w.Offset,
						name:      label,
						demangled: demangled,
						line:      first + len(lines),
					})
					lines = append(lines, styles.LabelStyle.Render(label+":"))
				}
				lines = append(lines, wordLine(w, alt))
			}
		}
	}
	return strings.Join(lines, "\n"), items
}

func wordLine(w listing.Word, alt bool) string {
	var b strings.Builder
	b.WriteString(styles.OffsetStyle.Render(fmt.Sprintf("  %08X  ", w.Offset)))
	for i, v := range w.Bytes {
		if i < w.Masked {
			b.WriteString(styles.MaskedStyle.Render("??"))
		} else {
			b.WriteString(styles.BytesStyle.Render(fmt.Sprintf("%02X", v)))
		}
		b.WriteByte(' ')
	}
	if len(w.Bytes) < 4 {
		return b.String()
	}

	note := mips.Annotate(w.Value(), alt)
	if w.Patch != nil {
		note = strings.TrimSpace(fmt.Sprintf("%s %s", w.Patch.Kind, note))
	}
	if note != "" {
		b.WriteString(" ")
		b.WriteString(styles.AnnotationStyle.Render("; " + note))
	}
	return b.String()
}
