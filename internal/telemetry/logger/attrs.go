package logger

import (
	"errors"
	"log/slog"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

// Epoch is the attribute for an epoch number.
func Epoch(n int64) slog.Attr {
	return slog.Int64("epoch", n)
}

// Session is the attribute for a realtime session ID.
func Session(id string) slog.Attr {
	return slog.String("session_id", id)
}

// Cell groups a cell's coordinate and color.
func Cell(c domain.Cell) slog.Attr {
	return slog.Group("cell", "x", c.X, "y", c.Y, "color", c.Color)
}

// Err is the attribute for err. Domain errors also carry their code.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return slog.Group("error", "code", de.Code, "msg", err.Error())
	}
	return slog.String("error", err.Error())
}
