// Package handlers holds websocket message handlers.
package handlers

import (
	"context"
	"fmt"

	wstypes "frontdesk-gateway/internal/domain/websocket"
	ws "frontdesk-gateway/internal/websocket"
)

// ActivityHandler turns browser interaction events into inactivity-window
// resets.
type ActivityHandler struct{}

func NewActivityHandler() *ActivityHandler {
	return &ActivityHandler{}
}

// SupportedEvents returns events this handler supports
func (h *ActivityHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeActivity}
}

// HandleMessage processes activity messages
func (h *ActivityHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	var data wstypes.ActivityData
	if err := ws.MapToStruct(msg.Data, &data); err != nil {
		return fmt.Errorf("invalid activity payload: %w", err)
	}
	if !wstypes.IsActivityEvent(data.Event) {
		return fmt.Errorf("%w: %q", ws.ErrInvalidEvent, data.Event)
	}

	client.Touch()
	return nil
}
