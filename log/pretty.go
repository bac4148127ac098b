package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// palette holds the colors of one pretty handler. Each handler owns its
// palette so enabling or disabling color never races with other handlers.
type palette struct {
	key, str, num, yes, no, dur, tim *color.Color
	level                            map[Level]*color.Color
}

func newPalette(w io.Writer) palette {
	p := palette{
		key: color.New(color.FgHiBlack),
		str: color.New(color.FgCyan),
		num: color.New(color.FgYellow),
		yes: color.New(color.FgGreen),
		no:  color.New(color.FgRed),
		dur: color.New(color.FgMagenta),
		tim: color.New(color.FgBlue),
		level: map[Level]*color.Color{
			LevelTrace: color.New(color.FgHiBlack),
			LevelDebug: color.New(color.FgBlue),
			LevelInfo:  color.New(color.FgGreen),
			LevelWarn:  color.New(color.FgYellow),
			LevelError: color.New(color.FgRed, color.Bold),
		},
	}

	enable := isTerminal(w)
	for _, c := range p.all() {
		if enable {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

func (p palette) all() []*color.Color {
	out := []*color.Color{p.key, p.str, p.num, p.yes, p.no, p.dur, p.tim}
	for _, c := range p.level {
		out = append(out, c)
	}

	return out
}

func (p palette) forLevel(l slog.Level) *color.Color {
	switch {
	case l >= slog.LevelError:
		return p.level[LevelError]
	case l >= slog.LevelWarn:
		return p.level[LevelWarn]
	case l >= slog.LevelInfo:
		return p.level[LevelInfo]
	case l >= slog.LevelDebug:
		return p.level[LevelDebug]
	default:
		return p.level[LevelTrace]
	}
}

// value renders v with the color of its kind.
func (p palette) value(v slog.Value) string {
	v = v.Resolve()

	switch v.Kind() {
	case slog.KindInt64:
		return p.num.Sprint(strconv.FormatInt(v.Int64(), 10))
	case slog.KindUint64:
		return p.num.Sprint(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindFloat64:
		return p.num.Sprint(strconv.FormatFloat(v.Float64(), 'g', -1, 64))
	case slog.KindBool:
		if v.Bool() {
			return p.yes.Sprint("true")
		}

		return p.no.Sprint("false")
	case slog.KindDuration:
		return p.dur.Sprint(v.Duration().String())
	case slog.KindTime:
		return p.tim.Sprint(v.Time().String())
	case slog.KindAny:
		if l, ok := v.Any().(slog.Level); ok {
			return p.forLevel(l).Sprint(Level(l).name())
		}

		if err, ok := v.Any().(error); ok {
			return p.no.Sprint(err.Error())
		}

		return p.str.Sprint(fmt.Sprint(v.Any()))
	default:
		return p.str.Sprint(v.String())
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// prettyBase carries the state shared by the pretty text and JSON handlers.
type prettyBase struct {
	opts       slog.HandlerOptions
	mu         *sync.Mutex
	w          io.Writer
	formatTime FormatTime
	colors     palette
	attrs      []slog.Attr
	group      string
}

func newPrettyBase(
	w io.Writer,
	opts *slog.HandlerOptions,
	formatTime FormatTime,
) prettyBase {
	if formatTime == nil {
		formatTime = makeFormatTimeFunc(DefaultTimeLayout)
	}

	return prettyBase{
		opts:       *opts,
		mu:         &sync.Mutex{},
		w:          w,
		formatTime: formatTime,
		colors:     newPalette(w),
	}
}

func (b prettyBase) Enabled(_ context.Context, level slog.Level) bool {
	floor := slog.LevelInfo
	if b.opts.Level != nil {
		floor = b.opts.Level.Level()
	}

	return level >= floor
}

func (b prettyBase) withAttrs(attrs []slog.Attr) prettyBase {
	out := make([]slog.Attr, len(b.attrs), len(b.attrs)+len(attrs))
	copy(out, b.attrs)

	for _, a := range attrs {
		if b.group != "" {
			a.Key = b.group + "." + a.Key
		}

		out = append(out, a)
	}

	b.attrs = out

	return b
}

func (b prettyBase) withGroup(name string) prettyBase {
	if name == "" {
		return b
	}

	if b.group != "" {
		name = b.group + "." + name
	}

	b.group = name

	return b
}

// fields flattens r into the ordered key/value pairs to be rendered.
func (b prettyBase) fields(r slog.Record) []slog.Attr {
	out := make([]slog.Attr, 0, 4+len(b.attrs)+r.NumAttrs())

	if !r.Time.IsZero() {
		if s := b.formatTime(r.Time); s != "" {
			out = append(out, slog.String(slog.TimeKey, s))
		}
	}

	out = append(out, slog.Any(slog.LevelKey, r.Level))

	if b.opts.AddSource {
		if src := r.Source(); src != nil && src.File != "" {
			out = append(out, slog.String(
				slog.SourceKey, fmt.Sprintf("%s:%d", src.File, src.Line),
			))
		}
	}

	out = append(out, slog.String(slog.MessageKey, r.Message))
	out = append(out, b.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		if b.group != "" {
			a.Key = b.group + "." + a.Key
		}

		out = append(out, a)

		return true
	})

	return out
}

func (b prettyBase) write(buf *bytes.Buffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf.WriteByte('\n')

	_, err := b.w.Write(buf.Bytes())

	return err
}

// prettyTextHandler writes one colorized key=value line per record.
type prettyTextHandler struct{ prettyBase }

func newPrettyTextHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
	formatTime FormatTime,
) *prettyTextHandler {
	return &prettyTextHandler{newPrettyBase(w, opts, formatTime)}
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	for _, a := range h.fields(r) {
		if a.Equal(slog.Attr{}) {
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}

		buf.WriteString(h.colors.key.Sprint(a.Key))
		buf.WriteByte('=')
		buf.WriteString(h.colors.value(a.Value))
	}

	return h.write(&buf)
}

func (h *prettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyTextHandler{h.withAttrs(attrs)}
}

func (h *prettyTextHandler) WithGroup(name string) slog.Handler {
	return &prettyTextHandler{h.withGroup(name)}
}

// prettyJSONHandler writes an indented, colorized JSON-like object per
// record. String values are left unquoted for readability.
type prettyJSONHandler struct{ prettyBase }

func newPrettyJSONHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
	formatTime FormatTime,
) *prettyJSONHandler {
	return &prettyJSONHandler{newPrettyBase(w, opts, formatTime)}
}

func (h *prettyJSONHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	fields := h.fields(r)
	lines := make([]string, 0, len(fields))

	for _, a := range fields {
		if a.Equal(slog.Attr{}) {
			continue
		}

		lines = append(lines,
			"  "+h.colors.key.Sprint(a.Key)+": "+h.value(a.Value),
		)
	}

	buf.WriteString("{\n")
	buf.WriteString(strings.Join(lines, ",\n"))
	buf.WriteString("\n}")

	return h.write(&buf)
}

func (h *prettyJSONHandler) value(v slog.Value) string {
	if v.Kind() == slog.KindAny && v.Any() == nil {
		return h.colors.key.Sprint("null")
	}

	return h.colors.value(v)
}

func (h *prettyJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyJSONHandler{h.withAttrs(attrs)}
}

func (h *prettyJSONHandler) WithGroup(name string) slog.Handler {
	return &prettyJSONHandler{h.withGroup(name)}
}
