package notification

import (
	"fmt"
	"log/slog"
)

const (
	DefaultTimeoutMs = 5000
	DefaultColor     = ColorSuccess
)

type Color string

const (
	ColorSuccess Color = "success"
	ColorInfo    Color = "info"
	ColorWarning Color = "warning"
	ColorError   Color = "error"
)

// Level maps the presentation color to the severity used when logging.
func (c Color) Level() slog.Level {
	switch c {
	case ColorError:
		return slog.LevelError
	case ColorWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

type Notification struct {
	Id          string `json:"id"`
	Message     string `json:"message"`
	Color       Color  `json:"color"`
	Visible     bool   `json:"visible"`
	TimeoutMs   int    `json:"timeout"`
	Position    int    `json:"position"`
	VisitHome   bool   `json:"visitHome"`
	HistoryBack bool   `json:"historyBack"`
}

// Descriptor is what callers hand to the store. Id, position and visibility
// are always assigned by the store.
type Descriptor struct {
	Message     string `json:"message"`
	Color       Color  `json:"color,omitempty"`
	TimeoutMs   int    `json:"timeout,omitempty"`
	VisitHome   bool   `json:"visitHome,omitempty"`
	HistoryBack bool   `json:"historyBack,omitempty"`
}

func (d *Descriptor) Validate() error {
	if d.Message == "" {
		return fmt.Errorf("message is required")
	}

	switch d.Color {
	case "", ColorSuccess, ColorInfo, ColorWarning, ColorError:
	default:
		return fmt.Errorf("color %q is invalid", d.Color)
	}

	if d.TimeoutMs < 0 {
		return fmt.Errorf("timeout should not be negative")
	}
	return nil
}

// New builds a notification from d with defaults applied. The caller still
// has to assign Id and Position.
func New(d Descriptor) Notification {
	n := Notification{
		Message:     d.Message,
		Color:       d.Color,
		Visible:     true,
		TimeoutMs:   d.TimeoutMs,
		VisitHome:   d.VisitHome,
		HistoryBack: d.HistoryBack,
	}

	if n.Color == "" {
		n.Color = DefaultColor
	}
	if n.TimeoutMs == 0 {
		n.TimeoutMs = DefaultTimeoutMs
	}
	return n
}
