// Package tui is the terminal host UI for the form wizard. It consumes
// engine snapshots and renders one field at a time; all wizard logic
// stays in the service.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/formflow/mcp-form-wizard/internal/field"
	"github.com/formflow/mcp-form-wizard/internal/wizard"
)

const progressBarWidth = 30

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	phaseStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	fieldStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

// Model is the bubbletea model driving one wizard session
type Model struct {
	service  *wizard.Service
	input    textinput.Model
	snapshot wizard.Snapshot
	status   string
	quitting bool
}

// New creates the TUI model over an already-loaded wizard service
func New(service *wizard.Service) Model {
	ti := textinput.New()
	ti.Placeholder = "value"
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 48

	snapshot := wizard.Snapshot{Phase: wizard.PhaseIdle}
	if state, err := service.State(); err == nil {
		snapshot = state.Snapshot
	}

	return Model{
		service:  service,
		input:    ti,
		snapshot: snapshot,
	}
}

// Run starts the interactive wizard and blocks until the user quits
func Run(service *wizard.Service) error {
	if _, err := tea.NewProgram(New(service)).Run(); err != nil {
		return fmt.Errorf("failed to run terminal UI: %w", err)
	}
	return nil
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "ctrl+b":
			return m.applyResult(m.service.Back())
		case "enter":
			return m.confirm()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// confirm executes the snapshot's action for the enter key
func (m Model) confirm() (tea.Model, tea.Cmd) {
	switch m.snapshot.Phase {
	case wizard.PhaseStart:
		return m.applyResult(m.service.Start())

	case wizard.PhaseNext, wizard.PhaseSign:
		if current := m.snapshot.CurrentField; current != nil {
			req := valueRequest(*current, m.input.Value())
			if _, err := m.service.SetValue(req); err != nil {
				m.status = err.Error()
				return m, nil
			}
		}
		model, cmd := m.applyResult(m.service.Next())
		return model, cmd

	case wizard.PhaseSubmit:
		result, err := m.service.Submit(context.Background())
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.snapshot = result.Snapshot
		if result.Outcome.Success {
			m.status = "Submitted: " + result.Outcome.Receipt
		} else {
			m.status = "Submission failed: " + strings.Join(result.Outcome.Failures, "; ")
		}
		return m, nil

	case wizard.PhaseComplete:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// applyResult folds a service result into the model
func (m Model) applyResult(result *wizard.StateResult, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.snapshot = result.Snapshot
	m.status = ""
	m.input.SetValue("")
	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Form Wizard"))
	b.WriteString("  ")
	b.WriteString(phaseStyle.Render(string(m.snapshot.Phase)))
	b.WriteString("\n\n")

	b.WriteString(progressStyle.Render(renderProgressBar(m.snapshot.Progress.Percentage)))
	b.WriteString(fmt.Sprintf("  %d/%d required fields\n\n",
		m.snapshot.Progress.Completed, m.snapshot.Progress.Total))

	if current := m.snapshot.CurrentField; current != nil {
		b.WriteString(fieldStyle.Render(fieldPrompt(*current)))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	for _, problem := range m.snapshot.ValidationErrors {
		b.WriteString(errorStyle.Render("! " + problem))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("enter: %s  ctrl+b: back  esc: quit", m.snapshot.Action.Label)))
	b.WriteString("\n")
	return b.String()
}

// fieldPrompt describes the current field and how to fill it
func fieldPrompt(f field.Field) string {
	name := f.Name
	if name == "" {
		name = f.ID
	}
	prompt := fmt.Sprintf("%s (%s, page %d)", name, f.Kind, f.Page)

	switch f.Kind {
	case field.KindCheckbox:
		prompt += ", type y or n"
	case field.KindRadio, field.KindDropdown:
		if len(f.Options) > 0 {
			prompt += ", one of: " + strings.Join(f.Options, ", ")
		}
	case field.KindSignature:
		prompt += ", type your signature"
	case field.KindDate:
		prompt += ", e.g. 2026-08-24"
	}
	return prompt
}

// valueRequest converts terminal input into a typed value request
func valueRequest(f field.Field, raw string) wizard.SetValueRequest {
	req := wizard.SetValueRequest{FieldID: f.ID}
	if f.Kind == field.KindCheckbox {
		checked := false
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "y", "yes", "true", "x", "on":
			checked = true
		}
		req.Checked = &checked
		return req
	}
	req.Text = strings.TrimSpace(raw)
	return req
}

// renderProgressBar draws a fixed-width completion bar
func renderProgressBar(percentage int) string {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}
	filled := percentage * progressBarWidth / 100
	return fmt.Sprintf("[%s%s] %3d%%",
		strings.Repeat("█", filled),
		strings.Repeat("░", progressBarWidth-filled),
		percentage)
}
