package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/soarlink/soarlink/internal/bus"
	"github.com/soarlink/soarlink/internal/config"
	"github.com/soarlink/soarlink/internal/notifications"
	"github.com/soarlink/soarlink/internal/probe"
)

// NotificationService turns finished connection tests into desktop
// notifications while the window is not focused.
type NotificationService struct {
	bus           bus.MessageBus
	currentConfig func() config.AppConfig
	sender        notifications.Sender
	logger        *slog.Logger

	mu           sync.RWMutex
	isForeground func() bool
}

func NewNotificationService(
	messageBus bus.MessageBus,
	currentConfig func() config.AppConfig,
	isForeground func() bool,
	sender notifications.Sender,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = slog.Default().With("component", "app.notifications")
	}

	return &NotificationService{
		bus:           messageBus,
		currentConfig: currentConfig,
		isForeground:  isForeground,
		sender:        sender,
		logger:        logger,
	}
}

func (s *NotificationService) SetForegroundCheck(fn func() bool) {
	s.mu.Lock()
	s.isForeground = fn
	s.mu.Unlock()
}

func (s *NotificationService) Start(ctx context.Context) {
	if s == nil || s.bus == nil || s.sender == nil {
		return
	}

	sub := s.bus.Subscribe(probe.TopicStatus)
	go func() {
		defer s.bus.Unsubscribe(sub, probe.TopicStatus)

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub:
				if !ok {
					return
				}
				res, ok := raw.(probe.Result)
				if !ok {
					continue
				}
				s.handleResult(res)
			}
		}
	}()
}

func (s *NotificationService) handleResult(res probe.Result) {
	if res.Pending || res.Status == "" {
		return
	}
	if s.currentConfig != nil && !s.currentConfig().UI.NotifyProbeResult {
		return
	}

	s.mu.RLock()
	isForeground := s.isForeground
	s.mu.RUnlock()
	if isForeground != nil && isForeground() {
		s.logger.Debug("skip notification while window is focused", "probe_id", res.ID)
		return
	}

	s.sender.Send(notifications.Payload{
		Title:   NotifyTitleTest,
		Content: res.Status,
	})
}
