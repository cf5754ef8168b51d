package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nfe/internal/query"
)

// Service is the TUI-facing subset of the NF-e service.
type Service interface {
	Ingest(ctx context.Context, zipPath string) (string, error)
	Rebuild(ctx context.Context) (int, error)
	Answer(ctx context.Context, w io.Writer, q string) error
}

type screen int

const (
	screenMenu screen = iota
	screenIngest
	screenQuery
)

const menuText = `Menu Principal:
1- Receber arquivos de NF-e (.zip)
2- Criar/Recriar base de conhecimentos NF-e
3- Pesquise sobre suas NF-E
0- Sair`

type ingestDoneMsg struct {
	err error
}

type rebuildDoneMsg struct {
	count int
	err   error
}

type answerMsg struct {
	text string
	err  error
}

// Model is the Bubble Tea model for the interactive menu.
type Model struct {
	ctx      context.Context
	service  Service
	screen   screen
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	busy     bool
	status   string
	failed   bool
	ready    bool
	quitting bool
}

// New creates the menu model. Operations run under ctx.
func New(ctx context.Context, service Service) Model {
	ti := textinput.New()
	ti.CharLimit = 0
	ti.Focus()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m := Model{
		ctx:      ctx,
		service:  service,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
	}
	m.show(screenMenu)
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and operation-result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := outputBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		// title, status and a spacer
		vh := msg.Height - 3 - ih - 1 - fh
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh)
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case ingestDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Erro ao descompactar: %v", msg.err), true)
		} else {
			m.setStatus("Arquivo descompactado com sucesso!", false)
		}
		m.show(screenMenu)
		return m, nil
	case rebuildDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Erro ao criar base de conhecimento: %v", msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("Base de conhecimento criada com %d notas fiscais.", msg.count), false)
		}
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Erro ao carregar dados tabulares: %v", msg.err), true)
			return m, nil
		}
		m.setStatus("", false)
		m.viewport.SetContent(msg.text)
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			m.quitting = true
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "enter":
			return m.submit(strings.TrimSpace(m.input.Value()))
		case "esc":
			if m.screen != screenMenu {
				m.setStatus("", false)
				m.show(screenMenu)
				return m, nil
			}
		case "pgup", "pgdown":
			if m.screen == screenQuery {
				var cmd tea.Cmd
				m.viewport, cmd = m.viewport.Update(msg)
				return m, cmd
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(value string) (tea.Model, tea.Cmd) {
	m.input.Reset()
	switch m.screen {
	case screenIngest:
		path := strings.Trim(value, `"'`)
		if path == "" {
			return m, nil
		}
		m.busy = true
		m.setStatus("Descompactando "+path+"...", false)
		return m, tea.Batch(m.spinner.Tick, m.ingest(path))
	case screenQuery:
		if value == "" {
			return m, nil
		}
		m.busy = true
		m.setStatus("Pesquisando...", false)
		return m, tea.Batch(m.spinner.Tick, m.answer(value))
	}

	switch value {
	case "1":
		m.setStatus("", false)
		m.show(screenIngest)
	case "2":
		m.busy = true
		m.setStatus("Criando base de conhecimento...", false)
		return m, tea.Batch(m.spinner.Tick, m.rebuild())
	case "3":
		m.setStatus("", false)
		m.show(screenQuery)
	case "0":
		m.quitting = true
		m.setStatus("Saindo...", false)
		return m, tea.Quit
	default:
		m.setStatus("Opção inválida. Tente novamente.", true)
	}
	return m, nil
}

func (m *Model) show(s screen) {
	m.screen = s
	switch s {
	case screenIngest:
		m.input.Prompt = "Informe o caminho do arquivo .zip de NF-e: "
		m.input.Placeholder = ""
	case screenQuery:
		m.input.Prompt = "Faça sua pergunta: "
		m.input.Placeholder = "nota 369180"
		m.viewport.SetContent(query.Usage)
		m.viewport.GotoTop()
	default:
		m.input.Prompt = "Escolha uma opção: "
		m.input.Placeholder = ""
	}
}

func (m *Model) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

func (m Model) ingest(path string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.service.Ingest(m.ctx, path)
		return ingestDoneMsg{err: err}
	}
}

func (m Model) rebuild() tea.Cmd {
	return func() tea.Msg {
		n, err := m.service.Rebuild(m.ctx)
		return rebuildDoneMsg{count: n, err: err}
	}
}

func (m Model) answer(q string) tea.Cmd {
	return func() tea.Msg {
		var b strings.Builder
		err := m.service.Answer(m.ctx, &b, q)
		return answerMsg{text: b.String(), err: err}
	}
}

// View renders the current screen.
func (m Model) View() string {
	if m.quitting {
		return m.status + "\n"
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("NF-e") + "\n")
	switch m.screen {
	case screenQuery:
		b.WriteString(outputBoxStyle.Render(m.viewport.View()) + "\n")
	default:
		b.WriteString(menuStyle.Render(menuText) + "\n")
	}
	b.WriteString(inputBoxStyle.Render(m.input.View()) + "\n")
	switch {
	case m.busy:
		b.WriteString(m.spinner.View() + " " + statusStyle.Render(m.status))
	case m.failed:
		b.WriteString(errorStyle.Render(m.status))
	default:
		b.WriteString(statusStyle.Render(m.status))
	}
	return b.String()
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	menuStyle      = lipgloss.NewStyle().Padding(0, 1)
	outputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
