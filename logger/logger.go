package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
)

type LogType string

const (
	TypeHTTP   LogType = "HTTP"
	TypeDB     LogType = "DB"
	TypeRoom   LogType = "ROOM"
	TypeSystem LogType = "SYS"
)

// CustomHandler prints compact colored lines for interactive use. Attribute
// keys pick the subsystem tag; everything else trails as key=value pairs.
type CustomHandler struct {
	opts      *slog.HandlerOptions
	startTime time.Time
	attrs     []slog.Attr
	groups    []string
}

func NewHandler(level slog.Level) *CustomHandler {
	return &CustomHandler{
		opts:      &slog.HandlerOptions{Level: level},
		startTime: time.Now(),
		attrs:     make([]slog.Attr, 0),
		groups:    make([]string, 0),
	}
}

func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CustomHandler{
		opts:      h.opts,
		startTime: h.startTime,
		attrs:     append(h.attrs, attrs...),
		groups:    h.groups,
	}
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	return &CustomHandler{
		opts:      h.opts,
		startTime: h.startTime,
		attrs:     h.attrs,
		groups:    append(h.groups, name),
	}
}

func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	timestamp := time.Now().Format("15:04:05")

	var levelColor, levelText string
	switch r.Level {
	case slog.LevelDebug:
		levelColor = colorPurple
		levelText = "DEBUG"
	case slog.LevelInfo:
		levelColor = colorGreen
		levelText = "INFO"
	case slog.LevelWarn:
		levelColor = colorYellow
		levelText = "WARN"
	case slog.LevelError:
		levelColor = colorRed
		levelText = "ERROR"
	}

	logType := TypeSystem
	var pairs []string
	collect := func(a slog.Attr) bool {
		switch a.Key {
		case "method", "path", "status":
			logType = TypeHTTP
		case "query", "sql":
			logType = TypeDB
		case "room_code", "client_id":
			logType = TypeRoom
		}
		pairs = append(pairs, fmt.Sprintf("%s=%v", a.Key, a.Value))
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	typeColor := colorBlue
	switch logType {
	case TypeDB:
		typeColor = colorCyan
	case TypeRoom:
		typeColor = colorPurple
	case TypeHTTP:
		typeColor = colorGreen
	}

	line := fmt.Sprintf("%s %s%-5s%s %s[%s]%s %s",
		timestamp,
		levelColor, levelText, colorReset,
		typeColor, logType, colorReset,
		r.Message)
	if len(pairs) > 0 {
		line += " " + strings.Join(pairs, " ")
	}
	fmt.Println(line)

	return nil
}

// Setup installs the handler as the process default. Format "json" falls
// back to the stock structured handler for log shippers.
func Setup(level slog.Level, format string, addSource bool) {
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: addSource,
		})
	} else {
		handler = NewHandler(level)
	}
	slog.SetDefault(slog.New(handler))
}
