package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/royal-court/internal/handlers"
	"github.com/jwebster45206/royal-court/pkg/ledger"
	"github.com/jwebster45206/royal-court/pkg/state"
	"github.com/jwebster45206/royal-court/pkg/story"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const (
	NarratorName    = "Herald"
	PlaceHolderText = "Enter a choice number, or /help..."
)

type entryKind int

const (
	entryInfo entryKind = iota
	entryEncounter
	entryResult
	entryError
	entryPlain
)

// logEntry keeps raw content so the court log can be re-wrapped on resize.
type logEntry struct {
	kind      entryKind
	text      string
	encounter *state.Encounter
	result    *state.ActionResult
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config        *ConsoleConfig
	api           *apiClient
	game          *handlers.GameResponse
	encounter     *state.Encounter
	entries       []logEntry
	events        <-chan SSEEvent
	lastEvent     string
	courtViewport viewport.Model
	metaViewport  viewport.Model
	textarea      textarea.Model
	ready         bool
	width         int
	height        int
	loading       bool

	showQuitModal bool

	progressTick int
}

type encounterMsg struct {
	encounter *state.Encounter
	err       error
}

type choiceResultMsg struct {
	result *state.ActionResult
	err    error
}

type previewMsg struct {
	choice  int
	preview *state.Preview
	err     error
}

type gameMsg struct {
	game *handlers.GameResponse
	err  error
}

type resetMsg struct {
	game *handlers.GameResponse
	err  error
}

type charactersMsg struct {
	characters []*ledger.Character
	err        error
}

type storyMsg struct {
	snapshot *story.Snapshot
	err      error
}

type sseMsg struct {
	event SSEEvent
	ok    bool
}

type progressTickMsg struct{}

var (
	courtPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")). // gold
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	gainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")) // bright green

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")) // salmon

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, api *apiClient, game *handlers.GameResponse, events <-chan SSEEvent) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	courtVp := viewport.New(50, 20)
	courtVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:        cfg,
		api:           api,
		game:          game,
		events:        events,
		textarea:      ta,
		courtViewport: courtVp,
		metaViewport:  metaVp,
		loading:       true,
		entries: []logEntry{
			{kind: entryInfo, text: "The court is assembled. Petitioners await your judgement."},
		},
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.requestEncounter(), waitForEvent(m.events), progressTick())
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.courtViewport, vpCmd = m.courtViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeCourtContent()
		m.writeMetaContent()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			return m.handleChoice(input)
		}

	case encounterMsg:
		m.loading = false
		if msg.err != nil {
			m.addEntry(logEntry{kind: entryError, text: msg.err.Error()})
		} else {
			m.encounter = msg.encounter
			m.addEntry(logEntry{kind: entryEncounter, encounter: msg.encounter})
		}
		return m, nil

	case choiceResultMsg:
		if msg.err != nil {
			m.loading = false
			m.addEntry(logEntry{kind: entryError, text: msg.err.Error()})
			return m, nil
		}
		m.encounter = nil
		m.addEntry(logEntry{kind: entryResult, result: msg.result})
		if !msg.result.CanContinue {
			m.loading = false
			m.addEntry(logEntry{kind: entryInfo, text: reignEndText(msg.result.Popularity)})
			return m, m.refreshGame()
		}
		return m, tea.Batch(m.refreshGame(), m.requestEncounter(), progressTick())

	case previewMsg:
		m.loading = false
		if msg.err != nil {
			m.addEntry(logEntry{kind: entryError, text: msg.err.Error()})
		} else {
			m.addEntry(logEntry{kind: entryPlain, text: formatPreview(msg.choice, msg.preview)})
		}
		return m, nil

	case gameMsg:
		if msg.err == nil && msg.game != nil {
			m.game = msg.game
			m.writeMetaContent()
		}
		return m, nil

	case resetMsg:
		if msg.err != nil {
			m.loading = false
			m.addEntry(logEntry{kind: entryError, text: msg.err.Error()})
			return m, nil
		}
		m.game = msg.game
		m.encounter = nil
		m.entries = []logEntry{{kind: entryInfo, text: "The reign begins anew."}}
		m.writeMetaContent()
		return m, tea.Batch(m.requestEncounter(), progressTick())

	case charactersMsg:
		m.loading = false
		if msg.err != nil {
			m.addEntry(logEntry{kind: entryError, text: msg.err.Error()})
		} else {
			m.addEntry(logEntry{kind: entryPlain, text: formatCharacters(msg.characters)})
		}
		return m, nil

	case storyMsg:
		m.loading = false
		if msg.err != nil {
			m.addEntry(logEntry{kind: entryError, text: msg.err.Error()})
		} else {
			m.addEntry(logEntry{kind: entryPlain, text: formatStory(msg.snapshot)})
		}
		return m, nil

	case sseMsg:
		if !msg.ok {
			return m, nil
		}
		m.lastEvent = msg.event.Type
		m.writeMetaContent()
		return m, waitForEvent(m.events)

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeCourtContent()
			return m, progressTick()
		}
		return m, nil
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.courtViewport, vpCmd = m.courtViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) resize() {
	courtWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - courtWidth - 6

	m.courtViewport.Width = courtWidth - 2
	m.courtViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(courtWidth - 4)
}

func (m *ConsoleUI) addEntry(e logEntry) {
	m.entries = append(m.entries, e)
	m.writeCourtContent()
}

func (m ConsoleUI) handleChoice(input string) (tea.Model, tea.Cmd) {
	if m.encounter == nil {
		m.addEntry(logEntry{kind: entryError, text: "No one stands before the throne."})
		return m, nil
	}
	choice, err := parseChoice(input, len(m.encounter.NPC.Choices))
	if err != nil {
		m.addEntry(logEntry{kind: entryError, text: err.Error()})
		return m, nil
	}
	m.loading = true
	m.progressTick = 0
	return m, tea.Batch(m.submitChoice(choice), progressTick())
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(strings.ToLower(input))

	switch fields[0] {
	case "/help":
		m.addEntry(logEntry{kind: entryPlain, text: titleStyle.Render("Help:") + `
• 1, 2, 3... - Choose a response
• /preview N - Preview the popularity impact of choice N
• /characters - List the court
• /story - Show themes, arcs and conflicts
• /reset - Begin the reign again
• /copy - Copy the game ID to the clipboard
• Ctrl+C - Quit`})

	case "/preview":
		if m.encounter == nil || len(fields) < 2 {
			m.addEntry(logEntry{kind: entryError, text: "Usage: /preview N while a petitioner is present"})
			return m, nil
		}
		choice, err := parseChoice(fields[1], len(m.encounter.NPC.Choices))
		if err != nil {
			m.addEntry(logEntry{kind: entryError, text: err.Error()})
			return m, nil
		}
		m.loading = true
		return m, m.previewChoice(choice)

	case "/characters":
		m.loading = true
		return m, m.fetchCharacters()

	case "/story":
		m.loading = true
		return m, m.fetchStory()

	case "/reset":
		m.loading = true
		return m, m.resetGame()

	case "/copy":
		if err := clipboard.WriteAll(m.game.ID.String()); err != nil {
			m.addEntry(logEntry{kind: entryError, text: "Clipboard unavailable: " + err.Error()})
		} else {
			m.addEntry(logEntry{kind: entryInfo, text: "Game ID copied to clipboard."})
		}

	default:
		m.addEntry(logEntry{kind: entryError, text: "Unknown command " + fields[0] + ". Try /help"})
	}

	return m, nil
}

// parseChoice converts a 1-based choice typed by the player into an index.
func parseChoice(input string, count int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("enter a choice number between 1 and %d", count)
	}
	if n < 1 || n > count {
		return 0, fmt.Errorf("choice %d is not offered; pick 1 to %d", n, count)
	}
	return n - 1, nil
}

func (m ConsoleUI) requestEncounter() tea.Cmd {
	return func() tea.Msg {
		enc, err := m.api.presentEncounter(m.game.ID)
		return encounterMsg{enc, err}
	}
}

func (m ConsoleUI) submitChoice(choice int) tea.Cmd {
	return func() tea.Msg {
		res, err := m.api.choose(m.game.ID, choice)
		return choiceResultMsg{res, err}
	}
}

func (m ConsoleUI) previewChoice(choice int) tea.Cmd {
	return func() tea.Msg {
		p, err := m.api.preview(m.game.ID, choice)
		return previewMsg{choice, p, err}
	}
}

func (m ConsoleUI) refreshGame() tea.Cmd {
	return func() tea.Msg {
		game, err := m.api.getGame(m.game.ID)
		return gameMsg{game, err}
	}
}

func (m ConsoleUI) resetGame() tea.Cmd {
	return func() tea.Msg {
		game, err := m.api.reset(m.game.ID)
		return resetMsg{game, err}
	}
}

func (m ConsoleUI) fetchCharacters() tea.Cmd {
	return func() tea.Msg {
		chars, err := m.api.characters(m.game.ID)
		return charactersMsg{chars, err}
	}
}

func (m ConsoleUI) fetchStory() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.api.story(m.game.ID)
		return storyMsg{snap, err}
	}
}

func waitForEvent(events <-chan SSEEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		return sseMsg{ev, ok}
	}
}

// writeCourtContent rebuilds the court log for the current viewport width
func (m *ConsoleUI) writeCourtContent() {
	width := m.courtViewport.Width - 6
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("THE ROYAL COURT") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, e := range m.entries {
		switch e.kind {
		case entryEncounter:
			content.WriteString(formatEncounter(e.encounter, width))
		case entryResult:
			content.WriteString(formatResult(e.result, width))
		case entryError:
			content.WriteString(errorStyle.Render(wordwrap.String("Error: "+e.text, width)))
		case entryInfo:
			content.WriteString(narratorStyle.Render(NarratorName+": ") + wordwrap.String(e.text, width-len(NarratorName)-2))
		default:
			content.WriteString(e.text)
		}
		content.WriteString("\n\n")
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.courtViewport.SetContent(content.String())
	m.courtViewport.GotoBottom()
}

func (m *ConsoleUI) writeMetaContent() {
	m.metaViewport.SetContent(writeMetadata(m.game, m.lastEvent, m.metaViewport.Width))
}

func writeMetadata(game *handlers.GameResponse, lastEvent string, width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("THE REALM") + "\n\n")
	if game == nil {
		return content.String()
	}

	content.WriteString("Game ID:\n")
	content.WriteString(game.ID.String()[:8] + "...\n\n")

	content.WriteString("Turn:\n")
	content.WriteString(fmt.Sprintf("%d of %d\n\n", min(game.Turn, game.MaxTurns), game.MaxTurns))

	content.WriteString("Popularity:\n")
	content.WriteString(fmt.Sprintf("%d %s\n\n", game.Popularity, popularityBar(game.Popularity, max(width-6, 5))))

	content.WriteString("Temper of the reign:\n")
	content.WriteString(game.DominantTheme + "\n\n")

	content.WriteString("Petitioners heard:\n")
	content.WriteString(fmt.Sprintf("%d\n\n", len(game.Completed)))

	if lastEvent != "" {
		content.WriteString("Last event:\n")
		content.WriteString(lastEvent + "\n\n")
	}

	if !game.CanContinue {
		content.WriteString(errorStyle.Render("The reign has ended") + "\n\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• 1-9: Choose\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return content.String()
}

func formatEncounter(enc *state.Encounter, width int) string {
	if enc == nil {
		return ""
	}
	npc := enc.NPC

	var b strings.Builder
	b.WriteString(speakerStyle.Render(fmt.Sprintf("%s, %s", npc.Name, npc.Role)))
	b.WriteString(promptStyle.Render(fmt.Sprintf("  (turn %d)", enc.Turn)) + "\n")
	b.WriteString(wordwrap.String(npc.Dialogue, width) + "\n")

	for _, a := range enc.ImmediateActions {
		if a.Applied {
			b.WriteString(promptStyle.Render(wordwrap.String(describeAction(a), width)) + "\n")
		}
	}

	b.WriteString("\n")
	for i, c := range npc.Choices {
		line := wordwrap.String(fmt.Sprintf("%d. %s", i+1, c.Text), width-2)
		b.WriteString(choiceStyle.Render(indent.String(line, 2)) + "\n")
	}
	if enc.GenerationError != "" {
		b.WriteString(promptStyle.Render("(the herald reads from the court roll)") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatResult(res *state.ActionResult, width int) string {
	if res == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(choiceStyle.Render("You: ") + wordwrap.String(res.Action.Choice.Text, width-5) + "\n")
	if res.NarratorResponse != "" {
		b.WriteString(narratorStyle.Render(NarratorName+": ") + wordwrap.String(res.NarratorResponse, width-len(NarratorName)-2) + "\n")
	}
	if res.Consequence != "" {
		b.WriteString(wordwrap.String(res.Consequence, width) + "\n")
	}
	b.WriteString(formatChange(res.Action.PopularityChange) + fmt.Sprintf(" popularity, now %d", res.Popularity) + "\n")

	if res.CharacterDied {
		b.WriteString(errorStyle.Render(res.Action.NPC+" did not survive the judgement.") + "\n")
	}
	for _, a := range res.CharacterActions {
		if a.Applied {
			b.WriteString(promptStyle.Render(wordwrap.String(describeAction(a), width)) + "\n")
		}
	}
	for _, arc := range res.Story.NewArcs {
		b.WriteString(loadingStyle.Render(wordwrap.String("A new tale unfolds: "+arc.Description, width)) + "\n")
	}
	for _, c := range res.Story.NewConflicts {
		b.WriteString(lossStyle.Render(wordwrap.String("Conflict: "+c.Description, width)) + "\n")
	}
	for _, ev := range res.Story.NewEvents {
		b.WriteString(loadingStyle.Render(wordwrap.String("Across the realm: "+ev.Description, width)) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatPreview(choice int, p *state.Preview) string {
	if p == nil {
		return ""
	}
	text := fmt.Sprintf("Choice %d would bring %s popularity", choice+1, formatChange(p.PopularityChange))
	if p.Consequence != "" {
		text += ": " + p.Consequence
	}
	return text
}

func formatChange(change int) string {
	switch {
	case change > 0:
		return gainStyle.Render(fmt.Sprintf("+%d", change))
	case change < 0:
		return lossStyle.Render(strconv.Itoa(change))
	default:
		return "±0"
	}
}

func describeAction(a state.ActionSummary) string {
	name := a.CharacterName
	if name == "" {
		name = a.CharacterID
	}
	var text string
	switch a.Type {
	case state.ActionDeath:
		text = name + " has died"
	case state.ActionExile:
		text = name + " has been exiled"
	case state.ActionCreate:
		text = name + " joins the court"
		if a.CharacterRole != "" {
			text += " as " + a.CharacterRole
		}
	case state.ActionModify:
		text = name + "'s standing has changed"
	default:
		text = name + ": " + a.Type
	}
	if a.Reason != "" {
		text += " (" + a.Reason + ")"
	}
	return text
}

func formatCharacters(chars []*ledger.Character) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("The Court:") + "\n")
	if len(chars) == 0 {
		b.WriteString("No one has yet come before the throne.")
		return b.String()
	}
	for _, c := range chars {
		status := ""
		if c.Status != ledger.StatusAlive {
			status = " [" + string(c.Status) + "]"
		}
		b.WriteString(fmt.Sprintf("• %s, %s: affinity %.0f%s\n", c.Name, c.Role, c.Affinity, status))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStory(s *story.Snapshot) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("The Chronicle:") + "\n")
	b.WriteString(fmt.Sprintf("Justice %.0f, Diplomacy %.0f, Tradition %.0f, Economy %.0f, Military %.0f\n",
		s.Themes.Justice, s.Themes.Diplomacy, s.Themes.Tradition, s.Themes.Economy, s.Themes.Military))
	b.WriteString("Dominant: " + s.DominantTheme + "\n")
	for _, a := range s.Arcs {
		b.WriteString(fmt.Sprintf("• Arc %s (%d%%): %s\n", a.Type, a.Progress, a.Description))
	}
	for _, c := range s.Conflicts {
		b.WriteString(fmt.Sprintf("• Conflict %s (intensity %d): %s\n", c.Type, c.Intensity, c.Description))
	}
	for _, ev := range s.Events {
		b.WriteString(fmt.Sprintf("• Turn %d: %s\n", ev.Turn, ev.Description))
	}
	return strings.TrimRight(b.String(), "\n")
}

func reignEndText(popularity int) string {
	switch {
	case popularity <= 0:
		return "The people have turned against you. Your reign is over."
	case popularity >= 80:
		return fmt.Sprintf("Your reign ends in glory, beloved by the realm at %d popularity.", popularity)
	default:
		return fmt.Sprintf("Your reign draws to a close with %d popularity.", popularity)
	}
}

// popularityBar renders a 0-100 value as a fixed-width bar.
func popularityBar(popularity, width int) string {
	filled := max(0, min(width, popularity*width/100))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if popularity < 25 {
		return lossStyle.Render(bar)
	}
	return gainStyle.Render(bar)
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Abdicate?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave the throne?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	courtWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - courtWidth - 6

	courtPanel := courtPanelStyle.Width(courtWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.courtViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(courtWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, courtPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.courtViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}

	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
