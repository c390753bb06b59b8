package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"justdraft/internal/auth"
	"justdraft/internal/export"
	"justdraft/internal/extract"
)

type viewState int

const (
	statePassword viewState = iota
	stateInput
	stateExtracting
	stateResults
)

// extractDoneMsg carries the outcome of a background extraction.
type extractDoneMsg struct {
	result extract.Result
	err    error
}

// exportDoneMsg carries the outcome of writing export artifacts.
type exportDoneMsg struct {
	paths []string
	err   error
}

// App is the TUI application model.
type App struct {
	state viewState

	gate      *auth.Gate
	client    *extract.Client
	exportDir string

	password textinput.Model
	input    textarea.Model
	spin     spinner.Model

	result   extract.Result
	rendered string
	errMsg   string
	note     string

	width    int
	height   int
	quitting bool
}

// NewApp creates the TUI application. When the gate holds no secret the
// app stays locked, matching the web gateway's fail-closed behavior.
func NewApp(gate *auth.Gate, client *extract.Client, exportDir string) *App {
	password := textinput.New()
	password.Placeholder = "application password"
	password.EchoMode = textinput.EchoPassword
	password.Focus()

	input := textarea.New()
	input.Placeholder = "생각나는 대로 적어보세요..."
	input.CharLimit = 0

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = TitleStyle

	a := &App{
		state:     statePassword,
		gate:      gate,
		client:    client,
		exportDir: exportDir,
		password:  password,
		input:     input,
		spin:      spin,
	}
	if gate.Authenticated() {
		a.state = stateInput
		a.input.Focus()
	}
	return a
}

// Init initializes the application.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.SetWidth(min(msg.Width-4, 100))
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.quitting = true
			return a, tea.Quit
		}
		return a.updateKeys(msg)

	case spinner.TickMsg:
		if a.state != stateExtracting {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case extractDoneMsg:
		if msg.err != nil {
			a.state = stateInput
			a.errMsg = msg.err.Error()
			a.input.Focus()
			return a, nil
		}
		a.result = msg.result
		a.rendered = a.renderResult()
		a.state = stateResults
		return a, nil

	case exportDoneMsg:
		if msg.err != nil {
			a.errMsg = msg.err.Error()
		} else {
			a.note = fmt.Sprintf("wrote %d files to %s", len(msg.paths), a.exportDir)
		}
		return a, nil
	}

	return a, nil
}

func (a *App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.state {
	case statePassword:
		if msg.Type == tea.KeyEnter {
			return a.submitPassword()
		}
		var cmd tea.Cmd
		a.password, cmd = a.password.Update(msg)
		return a, cmd

	case stateInput:
		switch msg.String() {
		case "ctrl+s":
			return a.startExtract()
		case "esc":
			a.errMsg = ""
			return a, nil
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd

	case stateResults:
		switch msg.String() {
		case "e":
			return a, a.exportCmd()
		case "r":
			a.result = extract.Result{}
			a.rendered = ""
			a.note = ""
			a.errMsg = ""
			a.input.Reset()
			a.state = stateInput
			a.input.Focus()
			return a, nil
		case "q":
			a.quitting = true
			return a, tea.Quit
		}
	}
	return a, nil
}

func (a *App) submitPassword() (tea.Model, tea.Cmd) {
	err := a.gate.Submit(a.password.Value())
	switch {
	case err == auth.ErrNotConfigured:
		a.errMsg = "APP_PASSWORD is not configured; access denied"
	case err == auth.ErrWrongPassword:
		a.errMsg = "wrong password"
		a.password.Reset()
	case err != nil:
		a.errMsg = err.Error()
	default:
		a.errMsg = ""
		a.state = stateInput
		a.input.Focus()
	}
	return a, nil
}

func (a *App) startExtract() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(a.input.Value())
	if text == "" {
		a.errMsg = "nothing to extract"
		return a, nil
	}

	a.errMsg = ""
	a.state = stateExtracting

	client := a.client
	return a, tea.Batch(a.spin.Tick, func() tea.Msg {
		result, err := client.Process(context.Background(), extract.Input{Text: text})
		return extractDoneMsg{result: result, err: err}
	})
}

func (a *App) exportCmd() tea.Cmd {
	result := a.result
	dir := a.exportDir
	return func() tea.Msg {
		paths, err := export.WriteFiles(dir, result)
		return exportDoneMsg{paths: paths, err: err}
	}
}

func (a *App) renderResult() string {
	md := export.Markdown(a.result)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(max(a.width-4, 40), 100)),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// View renders the application.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("📝 Just Draft"))
	b.WriteString("\n\n")

	switch a.state {
	case statePassword:
		b.WriteString(a.password.View())
		b.WriteString("\n")
		b.WriteString(MutedStyle.Render("enter to submit · ctrl+c to quit"))

	case stateInput:
		b.WriteString(PanelStyle.Render(a.input.View()))
		b.WriteString("\n")
		b.WriteString(MutedStyle.Render("ctrl+s to extract · ctrl+c to quit"))

	case stateExtracting:
		b.WriteString(a.spin.View())
		b.WriteString(" extracting tasks and memos...")

	case stateResults:
		b.WriteString(a.rendered)
		b.WriteString("\n")
		b.WriteString(MutedStyle.Render("e export · r new draft · q quit"))
	}

	if a.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(a.errMsg))
	}
	if a.note != "" {
		b.WriteString("\n")
		b.WriteString(MutedStyle.Render(a.note))
	}

	b.WriteString("\n")
	return b.String()
}
