package preview

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Lines per entry in the list pane (title + subtitle + blank separator).
const entryHeight = 3

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(12)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	statusStyles = map[string]lipgloss.Style{
		"new":      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		"seen":     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		"filtered": lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	}
)

type previewModel struct {
	entries      []Entry
	listViewport viewport.Model
	detailView   viewport.Model
	activePane   int // 0=list, 1=detail
	cursor       int
	width        int
	height       int
	ready        bool
}

func (m previewModel) Init() tea.Cmd {
	return nil
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab", "left", "right":
			m.activePane = 1 - m.activePane
			return m, nil
		case "o":
			if len(m.entries) > 0 {
				openURL(m.entries[m.cursor].Posting.ApplyLink)
			}
			return m, nil
		}

		if m.activePane == 0 {
			switch msg.String() {
			case "up", "k":
				m.moveCursor(-1)
				return m, nil
			case "down", "j":
				m.moveCursor(1)
				return m, nil
			}
		}

		// Forward other keys (pgup/pgdn/home/end) to the active viewport.
		var cmd tea.Cmd
		if m.activePane == 0 {
			m.listViewport, cmd = m.listViewport.Update(msg)
		} else {
			m.detailView, cmd = m.detailView.Update(msg)
		}
		return m, cmd
	}

	return m, nil
}

func (m *previewModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.entries)-1, 0))
	m.recalcContent()
	m.detailView.SetYOffset(0)

	vp := &m.listViewport
	top := m.cursor * entryHeight
	bottom := top + entryHeight - 1
	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m *previewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	listWidth := max((m.width-5)*2/5, 20)
	detailWidth := max(m.width-5-listWidth, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.listViewport = viewport.New(listWidth, paneHeight)
		m.detailView = viewport.New(detailWidth, paneHeight)
		m.ready = true
	} else {
		m.listViewport.Width = listWidth
		m.listViewport.Height = paneHeight
		m.detailView.Width = detailWidth
		m.detailView.Height = paneHeight
	}
	m.recalcContent()
}

func (m *previewModel) recalcContent() {
	m.listViewport.SetContent(renderList(m.entries, m.cursor))
	if len(m.entries) > 0 {
		m.detailView.SetContent(renderDetail(m.entries[m.cursor], max(m.detailView.Width-2, 20)))
	} else {
		m.detailView.SetContent("  (feed is empty)")
	}
}

func (m previewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	listHeader := fmt.Sprintf(" Feed (%d)", len(m.entries))
	detailHeader := " Message"

	listHeaderStyle, detailHeaderStyle := activeHeaderStyle, inactiveHeaderStyle
	listBorder, detailBorder := activeBorderStyle, inactiveBorderStyle
	if m.activePane == 1 {
		listHeaderStyle, detailHeaderStyle = inactiveHeaderStyle, activeHeaderStyle
		listBorder, detailBorder = inactiveBorderStyle, activeBorderStyle
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(m.listViewport.Width+2).Render(listHeaderStyle.Render(listHeader)),
		" ",
		lipgloss.NewStyle().Width(m.detailView.Width+2).Render(detailHeaderStyle.Render(detailHeader)),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		listBorder.Width(m.listViewport.Width).Render(m.listViewport.View()),
		" ",
		detailBorder.Width(m.detailView.Width).Render(m.detailView.View()),
	)

	counts := map[string]int{}
	for _, e := range m.entries {
		counts[e.status()]++
	}
	statusText := fmt.Sprintf(" %d new | %d seen | %d filtered    ↑/↓ select  Tab switch  o open  q quit",
		counts["new"], counts["seen"], counts["filtered"])
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func renderList(entries []Entry, cursor int) string {
	if len(entries) == 0 {
		return "  (no items)"
	}

	var b strings.Builder
	for i, e := range entries {
		titleSt, subtitleSt, prefix := titleStyle, subtitleStyle, "  "
		if i == cursor {
			titleSt, subtitleSt, prefix = selectedTitleStyle, selectedSubtitleStyle, "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(e.Item.Title))
		b.WriteByte('\n')

		posted := "n/a"
		if e.Item.PublishedAt != nil {
			posted = e.Item.PublishedAt.Format("2006-01-02 15:04")
		}
		b.WriteString(prefix)
		b.WriteString(statusStyles[e.status()].Render(e.status()))
		b.WriteString(subtitleSt.Render(" · " + posted))
		b.WriteByte('\n')

		if i < len(entries)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderDetail(e Entry, width int) string {
	var b strings.Builder
	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	p := e.Posting
	addField("Status", e.status())
	if p.Budget != nil {
		addField("Budget", fmt.Sprintf("%s (%s)", p.Budget.Amount, p.Budget.Kind))
	}
	addField("Posted", p.PostedOn)
	addField("Skills", p.Skills)
	addField("Country", p.Country)
	addField("Link", p.ApplyLink)
	addField("Fields", strings.Join(p.Fields(), ", "))

	b.WriteByte('\n')
	b.WriteString(dividerStyle.Render("── Message " + strings.Repeat("─", max(width-11, 3))))
	b.WriteString("\n\n")
	for _, line := range strings.Split(e.Message, "\n") {
		b.WriteString(messageStyle.Render(wordWrap(line, width)))
		b.WriteByte('\n')
	}
	return b.String()
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len([]rune(line))+1+len([]rune(w)) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the interactive preview in the alternate screen.
func Run(entries []Entry) error {
	p := tea.NewProgram(previewModel{entries: entries}, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
