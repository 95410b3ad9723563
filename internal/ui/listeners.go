package ui

import (
	"fmt"
	"sync"

	"github.com/soarlink/soarlink/internal/bus"
	"github.com/soarlink/soarlink/internal/probe"
)

func startStatusListener(messageBus bus.MessageBus, onResult func(probe.Result)) func() {
	if messageBus == nil {
		appLogger.Debug("skipping status listener: message bus is nil")

		return func() {}
	}

	sub := messageBus.Subscribe(probe.TopicStatus)
	appLogger.Debug("subscribed to UI bus topics", "topics", []string{probe.TopicStatus})
	done := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		for {
			select {
			case <-done:
				return
			case raw, ok := <-sub:
				if !ok {
					appLogger.Debug("probe status subscription closed")

					return
				}
				res, ok := raw.(probe.Result)
				if !ok {
					appLogger.Debug("ignoring unexpected probe status payload", "payload_type", fmt.Sprintf("%T", raw))

					continue
				}
				select {
				case <-done:
					return
				default:
				}
				if onResult != nil {
					onResult(res)
				}
			}
		}
	}()

	return func() {
		stopOnce.Do(func() {
			close(done)
			messageBus.Unsubscribe(sub, probe.TopicStatus)
		})
	}
}
