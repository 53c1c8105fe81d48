// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/miniscope/pkg/daq"
	"github.com/Thermoquad/miniscope/pkg/miniscope"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	coarseStep    = 10 // pgup/pgdown step for range settings
	maxLogEntries = 100
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for information
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	src     *miniscope.Source
	devInfo string

	// Settings the variant supports, in synchronization order
	settings []miniscope.Setting
	selected int

	// Direct value entry
	valueInput textinput.Model
	editing    bool

	// Monitoring
	lastFrame   *miniscope.FrameMeta
	lastBurst   int
	errorLog    []errorLogEntry
	streamEnded bool

	// UI state
	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type controlFrameMsg struct {
	meta     miniscope.FrameMeta
	received int
}

type controlLogMsg struct {
	message string
}

type streamEndedMsg struct {
	err error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(src *miniscope.Source, devInfo string) controlModel {
	ti := textinput.New()
	ti.CharLimit = 8
	ti.Width = 10

	v := src.Variant()
	settings := make([]miniscope.Setting, 0, len(miniscope.AllSettings))
	for _, s := range miniscope.AllSettings {
		if v.Supports(s) && v.Runtime(s) {
			settings = append(settings, s)
		}
	}

	return controlModel{
		src:        src,
		devInfo:    devInfo,
		settings:   settings,
		valueInput: ti,
		errorLog:   make([]errorLogEntry, 0),
		width:      80,
		height:     24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case controlTickMsg:
		return m, controlTickCmd()

	case controlFrameMsg:
		meta := msg.meta
		m.lastFrame = &meta
		m.lastBurst = msg.received

	case controlLogMsg:
		m.addLogEntry(msg.message, false)

	case streamEndedMsg:
		m.streamEnded = true
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Acquisition stopped: %v", msg.err), true)
		} else {
			m.addLogEntry("Acquisition stopped: end of stream", false)
		}
	}

	return m, nil
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			m.commitEdit()
			return m, nil
		case "esc":
			m.editing = false
			m.valueInput.Blur()
			return m, nil
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.valueInput, cmd = m.valueInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(m.settings)-1 {
			m.selected++
		}

	case "+", "=", "right", "l":
		m.stepSelected(1)

	case "-", "left", "h":
		m.stepSelected(-1)

	case "pgup":
		m.stepSelected(coarseStep)

	case "pgdown":
		m.stepSelected(-coarseStep)

	case "enter":
		if s, ok := m.selectedSetting(); ok {
			m.editing = true
			m.valueInput.SetValue(formatSettingValue(s, m.src.Settings().Get(s)))
			m.valueInput.CursorEnd()
			return m, m.valueInput.Focus()
		}

	case "r":
		m.src.Statistics().Reset()
		m.addLogEntry("Statistics reset", false)
	}

	return m, nil
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	selectedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("12"))

	// Header
	s.WriteString(titleStyle.Render("MINISCOPE CONTROL"))
	s.WriteString(" ")
	state := m.src.State()
	stateText := statsValueStyle.Render(state.String())
	if m.streamEnded || state == miniscope.StateFaulted {
		stateText = errorStyle.Render(state.String())
	}
	s.WriteString(headerStyle.Render("| "))
	s.WriteString(stateText)
	s.WriteString(headerStyle.Render(" | q quit, up/down select, +/- adjust, enter edit, r reset stats"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(m.devInfo))
	s.WriteString("\n\n")

	leftWidth := 38
	rightWidth := m.width - leftWidth - 8
	if rightWidth < 30 {
		rightWidth = 30
	}

	settingsPanel := boxStyle.Width(leftWidth).Render(m.renderSettings(statsLabelStyle, headerStyle, selectedStyle))
	telemetryPanel := boxStyle.Width(rightWidth).Render(m.renderTelemetry(statsLabelStyle, statsValueStyle, warningStyle, headerStyle))
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, settingsPanel, " ", telemetryPanel))
	s.WriteString("\n")

	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n")

	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, errorStyle, headerStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// Rendering
//////////////////////////////////////////////////////////////

func (m controlModel) renderSettings(statsLabelStyle, headerStyle, selectedStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("SETTINGS"))
	s.WriteString("\n")

	if len(m.settings) == 0 {
		s.WriteString(headerStyle.Render("  (no runtime settings)"))
		return s.String()
	}

	current := m.src.Settings().Snapshot()
	domains := m.src.Variant().Domains
	for i, setting := range m.settings {
		value := formatSettingValue(setting, current.Get(setting))
		if i == m.selected && m.editing {
			value = m.valueInput.View()
		}

		line := fmt.Sprintf("%-22s %s", setting.String(), value)
		if i == m.selected {
			s.WriteString(selectedStyle.Render("> " + line))
		} else {
			s.WriteString("  " + line)
		}
		s.WriteString("\n")
		if i == m.selected {
			s.WriteString(headerStyle.Render("    " + domains[setting].String()))
			s.WriteString("\n")
		}
	}
	return s.String()
}

func (m controlModel) renderTelemetry(statsLabelStyle, statsValueStyle, warningStyle, headerStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("TELEMETRY"))
	s.WriteString("\n")

	if m.lastFrame == nil {
		s.WriteString(warningStyle.Render("Waiting for frames..."))
		return s.String()
	}

	f := m.lastFrame
	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Frame:"), statsValueStyle.Render(fmt.Sprintf("%d", f.Number))))
	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Size:"), statsValueStyle.Render(fmt.Sprintf("%dx%d", f.Width, f.Height))))

	trigger := headerStyle.Render("inactive")
	if f.Trigger {
		trigger = statsValueStyle.Render("ACTIVE")
	}
	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Trigger:"), trigger))

	if f.Quaternion != nil {
		s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Orientation:"), statsValueStyle.Render(daq.FormatQuaternion(*f.Quaternion))))
		s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Norm:"), statsValueStyle.Render(fmt.Sprintf("%.3f", f.Quaternion.Norm()))))
	}

	s.WriteString(headerStyle.Render(fmt.Sprintf("%s, %d frames in last update", f.Timestamp.Format("15:04:05.000"), m.lastBurst)))
	return s.String()
}

func (m controlModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	c := m.src.Statistics().Counters()

	dropped := statsValueStyle.Render("0")
	if c.DroppedFrames > 0 {
		dropped = errorStyle.Render(fmt.Sprintf("%d", c.DroppedFrames))
	}
	failures := statsValueStyle.Render("0")
	if c.CommandFailures > 0 {
		failures = errorStyle.Render(fmt.Sprintf("%d", c.CommandFailures))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Frames:"), statsValueStyle.Render(fmt.Sprintf("%d", c.TotalFrames)),
		statsLabelStyle.Render("Dropped:"), dropped,
		statsLabelStyle.Render("Commands:"), statsValueStyle.Render(fmt.Sprintf("%d", c.CommandsSent)),
		statsLabelStyle.Render("Failed:"), failures,
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f fps", c.FrameRate)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog(statsLabelStyle, warningStyle, errorStyle, headerStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := 8
	if len(m.errorLog) < logHeight {
		logHeight = len(m.errorLog)
	}
	startIdx := len(m.errorLog) - logHeight

	if len(m.errorLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyle
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Settings
//////////////////////////////////////////////////////////////

func (m *controlModel) selectedSetting() (miniscope.Setting, bool) {
	if m.selected < 0 || m.selected >= len(m.settings) {
		return 0, false
	}
	return m.settings[m.selected], true
}

// stepSelected moves the selected setting delta steps through its domain.
func (m *controlModel) stepSelected(delta int) {
	s, ok := m.selectedSetting()
	if !ok {
		return
	}
	current := m.src.Settings().Get(s)
	next := stepValue(m.src.Variant().Domains[s], current, delta)
	if next == current {
		return
	}
	m.applySetting(s, next)
}

func (m *controlModel) commitEdit() {
	m.editing = false
	m.valueInput.Blur()

	s, ok := m.selectedSetting()
	if !ok {
		return
	}
	value, err := parseSettingValue(s, m.valueInput.Value())
	if err != nil {
		m.addLogEntry(fmt.Sprintf("Invalid value: %v", err), true)
		return
	}
	m.applySetting(s, value)
}

func (m *controlModel) applySetting(s miniscope.Setting, value int) {
	if err := m.src.Set(s, value); err != nil {
		m.addLogEntry(err.Error(), true)
		return
	}
	m.addLogEntry(fmt.Sprintf("%s -> %s", s, formatSettingValue(s, value)), false)
}

// stepValue moves v delta steps within d: through the choices for an
// enumerated domain, by units for a range. The result is clamped.
func stepValue(d miniscope.Domain, v, delta int) int {
	if len(d.Choices) > 0 {
		idx := -1
		for i, c := range d.Choices {
			if c == v {
				idx = i
				break
			}
		}
		if idx < 0 {
			return d.Choices[0]
		}
		if delta > 0 {
			delta = 1
		} else {
			delta = -1
		}
		idx += delta
		if idx < 0 {
			idx = 0
		}
		if idx >= len(d.Choices) {
			idx = len(d.Choices) - 1
		}
		return d.Choices[idx]
	}

	next := v + delta
	if next < d.Min {
		next = d.Min
	}
	if next > d.Max {
		next = d.Max
	}
	return next
}

func formatSettingValue(s miniscope.Setting, v int) string {
	switch s {
	case miniscope.SettingGain:
		return miniscope.GainName(v)
	case miniscope.SettingTriggerPolicy:
		if v != 0 {
			return "true"
		}
		return "false"
	}
	return fmt.Sprintf("%d", v)
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	if len(m.errorLog) > maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-maxLogEntries:]
	}
}
