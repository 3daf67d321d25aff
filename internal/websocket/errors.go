// internal/websocket/errors.go
package websocket

import "errors"

var ErrInvalidEvent = errors.New("invalid activity event")
