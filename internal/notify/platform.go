package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"geo-reminder/internal/events"
)

// Platform is the notification subsystem the gate talks to.
type Platform interface {
	Permission() PermissionState
	RequestPermission(ctx context.Context) (PermissionState, error)
	Show(ctx context.Context, title, body string) error
}

// Dispatcher delivers a notification somewhere a user will see it.
type Dispatcher interface {
	Dispatch(ctx context.Context, title, body string) error
}

var errNoPrompter = errors.New("no permission prompter configured")

type platform struct {
	mu         sync.Mutex
	state      PermissionState
	prompter   Prompter
	dispatcher Dispatcher
}

// NewPlatform builds a Platform starting in the given state. An Unknown state
// is resolved through prompter.
func NewPlatform(initial PermissionState, prompter Prompter, dispatcher Dispatcher) Platform {
	return &platform{state: initial, prompter: prompter, dispatcher: dispatcher}
}

func (p *platform) Permission() PermissionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *platform) RequestPermission(ctx context.Context) (PermissionState, error) {
	if s := p.Permission(); s != Unknown {
		return s, nil
	}
	if p.prompter == nil {
		return Unknown, errNoPrompter
	}
	granted, err := p.prompter.Prompt(ctx)
	if err != nil {
		return Unknown, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Unknown {
		p.state = Denied
		if granted {
			p.state = Granted
		}
	}
	return p.state, nil
}

func (p *platform) Show(ctx context.Context, title, body string) error {
	if p.dispatcher == nil {
		return nil
	}
	return p.dispatcher.Dispatch(ctx, title, body)
}

// LogDispatcher writes notifications to the log.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d LogDispatcher) Dispatch(_ context.Context, title, body string) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification", "title", title, "body", body)
	return nil
}

// EventDispatcher publishes notifications as events.
type EventDispatcher struct {
	Publisher events.Publisher
}

func (d EventDispatcher) Dispatch(ctx context.Context, title, body string) error {
	return d.Publisher.Publish(ctx, events.TopicNotificationShown, events.NewNotificationShown(title, body))
}

// MultiDispatcher fans out to every dispatcher and joins their errors.
type MultiDispatcher []Dispatcher

func (m MultiDispatcher) Dispatch(ctx context.Context, title, body string) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
