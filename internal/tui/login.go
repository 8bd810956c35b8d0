// Package tui is the terminal OTP login wizard used by skinctl.
//
// The wizard walks through three screens: phone number, display name, and the
// 4-digit WhatsApp code. The otp.Flow owns all state that matters; this model
// only renders it and forwards key presses.
package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/example/skinwise/internal/contact"
	"github.com/example/skinwise/internal/otp"
)

type screen int

const (
	screenPhone screen = iota
	screenName
	screenCode
	screenDone
)

type sentMsg struct{ err error }

type verifiedMsg struct {
	outcome otp.Outcome
	err     error
}

type cooldownTickMsg time.Time

var errInvalidPhone = errors.New("enter a phone number with digits")

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	slotStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Width(3).
			Align(lipgloss.Center)
	focusedSlotStyle = slotStyle.BorderForeground(lipgloss.Color("212"))
)

// Login is the bubbletea model for the OTP wizard.
type Login struct {
	ctx    context.Context
	flow   *otp.Flow
	phone  textinput.Model
	name   textinput.Model
	screen screen
	busy   bool
	err    error

	outcome otp.Outcome
	contact string
	aborted bool
}

// NewLogin builds the wizard. phone pre-fills the first screen.
func NewLogin(ctx context.Context, flow *otp.Flow, phone string) *Login {
	phoneInput := textinput.New()
	phoneInput.Placeholder = "98765 43210"
	phoneInput.Prompt = "WhatsApp number: "
	phoneInput.CharLimit = 20
	phoneInput.SetValue(phone)
	phoneInput.Focus()

	nameInput := textinput.New()
	nameInput.Placeholder = "Your name"
	nameInput.Prompt = "Name: "
	nameInput.CharLimit = 60

	return &Login{
		ctx:   ctx,
		flow:  flow,
		phone: phoneInput,
		name:  nameInput,
	}
}

// Outcome reports how the wizard ended. ok is false when the user quit.
func (m *Login) Outcome() (outcome otp.Outcome, canonical string, ok bool) {
	return m.outcome, m.contact, !m.aborted && m.screen == screenDone
}

// Init implements tea.Model.
func (m *Login) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Login) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case sentMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.screen = screenCode
		m.name.Blur()
		return m, cooldownTick()

	case verifiedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.outcome = msg.outcome
		if v, ok := m.flow.State().(otp.Verified); ok {
			m.contact = v.Contact
		}
		m.screen = screenDone
		return m, tea.Quit

	case cooldownTickMsg:
		if m.screen == screenCode && m.flow.CooldownRemaining() > 0 {
			return m, cooldownTick()
		}
		return m, nil
	}

	return m, nil
}

func (m *Login) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	var cmd tea.Cmd
	switch m.screen {
	case screenPhone:
		if msg.Type == tea.KeyEnter {
			if contact.Normalize(m.phone.Value()) == "" {
				m.err = errInvalidPhone
				return m, nil
			}
			m.err = nil
			m.screen = screenName
			m.phone.Blur()
			return m, m.name.Focus()
		}
		m.phone, cmd = m.phone.Update(msg)
		return m, cmd

	case screenName:
		if msg.Type == tea.KeyEnter {
			return m.send()
		}
		m.name, cmd = m.name.Update(msg)
		return m, cmd

	case screenCode:
		return m.handleCodeKey(msg)
	}

	return m, nil
}

func (m *Login) handleCodeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyBackspace:
		m.flow.Backspace()
		return m, nil
	case tea.KeyLeft:
		m.flow.SetFocus(m.focus() - 1)
		return m, nil
	case tea.KeyRight:
		m.flow.SetFocus(m.focus() + 1)
		return m, nil
	case tea.KeyEnter:
		if entry := m.flow.Entry(); entry.Complete() {
			return m.verify()
		}
		return m, nil
	case tea.KeyRunes:
		if msg.Paste {
			if m.flow.Paste(string(msg.Runes)) {
				return m.verify()
			}
			return m, nil
		}
		if string(msg.Runes) == "r" {
			if m.flow.CanResend() {
				return m.send()
			}
			return m, nil
		}
		complete := false
		for _, r := range msg.Runes {
			complete = m.flow.Input(r)
		}
		if complete {
			return m.verify()
		}
	}
	return m, nil
}

func (m *Login) focus() int {
	entry := m.flow.Entry()
	return entry.Focus()
}

func (m *Login) send() (tea.Model, tea.Cmd) {
	m.busy = true
	m.err = nil
	ctx, flow := m.ctx, m.flow
	phone, name := m.phone.Value(), strings.TrimSpace(m.name.Value())
	return m, func() tea.Msg {
		return sentMsg{err: flow.Send(ctx, phone, name)}
	}
}

func (m *Login) verify() (tea.Model, tea.Cmd) {
	m.busy = true
	m.err = nil
	ctx, flow := m.ctx, m.flow
	return m, func() tea.Msg {
		outcome, err := flow.Submit(ctx)
		return verifiedMsg{outcome: outcome, err: err}
	}
}

func cooldownTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return cooldownTickMsg(t)
	})
}

// View implements tea.Model.
func (m *Login) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Skinwise login"))
	b.WriteString("\n\n")

	switch m.screen {
	case screenPhone:
		b.WriteString(m.phone.View())
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("enter to continue"))
	case screenName:
		b.WriteString(m.name.View())
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("enter to receive a code on WhatsApp"))
	case screenCode:
		b.WriteString("Code sent to " + contact.Normalize(m.phone.Value()) + "\n\n")
		b.WriteString(m.renderSlots())
		b.WriteString("\n")
		if remaining := m.flow.CooldownRemaining(); remaining > 0 {
			b.WriteString(hintStyle.Render("resend available in " + pluralSeconds(remaining)))
		} else {
			b.WriteString(hintStyle.Render("press r to resend"))
		}
	case screenDone:
		b.WriteString(successStyle.Render("Verified."))
	}

	if m.busy {
		b.WriteString("\n" + hintStyle.Render("working..."))
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()))
	}
	b.WriteString("\n" + hintStyle.Render("esc to quit") + "\n")
	return b.String()
}

func (m *Login) renderSlots() string {
	entry := m.flow.Entry()
	slots := entry.Slots()
	rendered := make([]string, 0, len(slots))
	for i, digit := range slots {
		style := slotStyle
		if i == entry.Focus() {
			style = focusedSlotStyle
		}
		if digit == "" {
			digit = " "
		}
		rendered = append(rendered, style.Render(digit))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func pluralSeconds(n int) string {
	if n == 1 {
		return "1 second"
	}
	return strconv.Itoa(n) + " seconds"
}
