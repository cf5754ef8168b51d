package tui

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	ingested  []string
	ingestErr error
	count     int
	answers   []string
}

func (f *fakeService) Ingest(_ context.Context, zipPath string) (string, error) {
	f.ingested = append(f.ingested, zipPath)
	return "NFs_Extraidas", f.ingestErr
}

func (f *fakeService) Rebuild(context.Context) (int, error) { return f.count, nil }

func (f *fakeService) Answer(_ context.Context, w io.Writer, q string) error {
	f.answers = append(f.answers, q)
	_, err := io.WriteString(w, "resposta para "+q+"\n")
	return err
}

// enter types value and presses Enter, then feeds every resulting message
// back into the model.
func enter(t *testing.T, m Model, value string) Model {
	t.Helper()
	m.input.SetValue(value)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	for _, msg := range drain(cmd) {
		if _, ok := msg.(spinner.TickMsg); ok {
			continue
		}
		next, _ = m.Update(msg)
		m = next.(Model)
	}
	return m
}

func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestModel_Rebuild(t *testing.T) {
	m := New(context.Background(), &fakeService{count: 2})
	m = enter(t, m, "2")
	assert.False(t, m.busy)
	assert.Equal(t, "Base de conhecimento criada com 2 notas fiscais.", m.status)
	assert.Equal(t, screenMenu, m.screen)
}

func TestModel_Ingest(t *testing.T) {
	svc := &fakeService{}
	m := New(context.Background(), svc)
	m = enter(t, m, "1")
	require.Equal(t, screenIngest, m.screen)

	m = enter(t, m, `"/tmp/notas.zip"`)
	assert.Equal(t, []string{"/tmp/notas.zip"}, svc.ingested)
	assert.Equal(t, "Arquivo descompactado com sucesso!", m.status)
	assert.Equal(t, screenMenu, m.screen)

	svc.ingestErr = errors.New("zip: not a valid zip file")
	m = enter(t, enter(t, m, "1"), "/tmp/ruim.zip")
	assert.True(t, m.failed)
	assert.Contains(t, m.status, "Erro ao descompactar: zip: not a valid zip file")
}

func TestModel_Query(t *testing.T) {
	svc := &fakeService{}
	m := New(context.Background(), svc)
	m = enter(t, m, "3")
	require.Equal(t, screenQuery, m.screen)
	assert.Contains(t, m.viewport.View(), "Pesquisa de NF-e")

	m = enter(t, m, "nota 369180")
	assert.Equal(t, []string{"nota 369180"}, svc.answers)
	assert.Contains(t, m.viewport.View(), "resposta para nota 369180")
	assert.Equal(t, screenQuery, m.screen)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, screenMenu, next.(Model).screen)
}

func TestModel_InvalidOptionAndExit(t *testing.T) {
	m := New(context.Background(), &fakeService{})
	m = enter(t, m, "9")
	assert.Equal(t, "Opção inválida. Tente novamente.", m.status)

	m.input.SetValue("0")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, "Saindo...\n", next.(Model).View())
}
