package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/adxport/pkg/app/screens"
	"github.com/kerbaras/adxport/pkg/services"
	"github.com/rs/zerolog"
)

// FlowFeed publishes flow state changes.
type FlowFeed interface {
	Subscribe(fn func(services.FlowState)) func()
}

type App struct {
	deps screens.Deps
	feed FlowFeed
	log  zerolog.Logger
}

func NewApp(deps screens.Deps, feed FlowFeed, log zerolog.Logger) *App {
	return &App{deps: deps, feed: feed, log: log}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := screens.NewRootScreen(a.deps)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))

	// Flow listeners run on download workers; the mailbox keeps them from
	// blocking on the UI loop.
	box := newMailbox()
	unsubscribe := a.feed.Subscribe(box.post)
	defer unsubscribe()
	go box.forward(ctx, func(s services.FlowState) {
		p.Send(screens.FlowStateMsg{State: s})
	})

	a.log.Debug().Msg("starting tui")
	_, err := p.Run()
	return err
}

// mailbox holds the latest flow state. Older unread states are replaced.
type mailbox struct {
	ch chan services.FlowState
}

func newMailbox() *mailbox {
	return &mailbox{ch: make(chan services.FlowState, 1)}
}

func (m *mailbox) post(s services.FlowState) {
	for {
		select {
		case m.ch <- s:
			return
		default:
		}
		select {
		case <-m.ch:
		default:
		}
	}
}

func (m *mailbox) forward(ctx context.Context, send func(services.FlowState)) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-m.ch:
			send(s)
		}
	}
}
