package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

type tickMsg time.Time

type runDoneMsg struct {
	err error
}

type dashboardModel struct {
	err      error
	driver   *driver
	cancel   context.CancelFunc
	bar      progress.Model
	finished bool
}

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *dashboardModel) Init() tea.Cmd {
	return tick()
}

// fraction is the share of the run's time or event budget used so far.
func (m *dashboardModel) fraction() float64 {
	lim := m.driver.limits
	var f float64
	switch {
	case lim.events > 0:
		f = float64(m.driver.stats.events.Value()+m.driver.stats.failures.Value()) / float64(lim.events)
	case lim.duration > 0:
		f = float64(m.driver.stats.duration()) / float64(lim.duration)
	}
	if f > 1 {
		f = 1
	}
	return f
}

func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancel()
		}
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 4
		if m.bar.Width > 80 {
			m.bar.Width = 80
		}
	case tickMsg:
		if m.finished {
			return m, nil
		}
		return m, tick()
	case runDoneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *dashboardModel) View() string {
	st := m.driver.stats
	s := headerStyle.Render("wasmbench") + "\n\n"
	s += m.bar.ViewAs(m.fraction()) + "\n\n"
	s += labelStyle.Render("events") + valueStyle.Render(fmt.Sprint(st.events.Value())) + "\n"
	s += labelStyle.Render("failures") + failStyle.Render(fmt.Sprint(st.failures.Value())) + "\n"
	s += labelStyle.Render("elapsed") + valueStyle.Render(st.duration().Round(time.Second).String()) + "\n"
	if !m.finished {
		s += "\n" + helpStyle.Render("q to stop") + "\n"
	}
	return s
}

// runWithDashboard runs d while a bubbletea program renders its progress.
func runWithDashboard(ctx context.Context, d *driver) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := &dashboardModel{
		driver: d,
		cancel: cancel,
		bar:    progress.New(progress.WithDefaultGradient()),
	}
	p := tea.NewProgram(m)

	go func() {
		p.Send(runDoneMsg{err: d.run(ctx)})
	}()

	if _, err := p.Run(); err != nil {
		return err
	}
	return m.err
}
