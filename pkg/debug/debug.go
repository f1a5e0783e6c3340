// Package debug provides category-based debug logging for chatbridge.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): CHATBRIDGE_DEBUG env or logging.debug
//   - Levels (HOW MUCH detail): CHATBRIDGE_LOG_LEVEL env or logging.level
//
// Usage:
//
//	debug.Log(debug.Providers, "request", "method", "POST", "url", url)
//	if debug.Enabled(debug.Adapter) { /* expensive formatting */ }
//
// At TRACE level the providers category also dumps raw HTTP bodies.
package debug

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

// Category selects a subsystem for debug output.
type Category string

const (
	// Providers covers backend HTTP requests and responses.
	Providers Category = "providers"
	// Adapter covers chat to completion parameter mapping.
	Adapter Category = "adapter"
	// Streaming covers SSE parsing and chunk delivery.
	Streaming Category = "streaming"
	// Template covers prompt rendering.
	Template Category = "template"
	// Config covers configuration discovery and loading.
	Config Category = "config"
	// All enables every category.
	All Category = "all"
)

// Known lists the categories understood by chatbridge.
var Known = []Category{Providers, Adapter, Streaming, Template, Config, All}

// LevelTrace is below slog.LevelDebug for maximum verbosity.
const LevelTrace = slog.LevelDebug - 4

type categorySet map[Category]bool

// enabled is swapped atomically by Init so readers never lock.
var enabled atomic.Pointer[categorySet]

func init() {
	// Available before Init runs, e.g. while the config file is loaded.
	set, _ := parseCategories(os.Getenv("CHATBRIDGE_DEBUG"))
	enabled.Store(&set)
}

// Init configures categories and the default slog handler from config
// values. Non-empty CHATBRIDGE_DEBUG and CHATBRIDGE_LOG_LEVEL override them.
// Unknown categories are reported with a warning and otherwise ignored.
func Init(configCategories string, configLevel string) {
	cats := os.Getenv("CHATBRIDGE_DEBUG")
	if cats == "" {
		cats = configCategories
	}
	level := os.Getenv("CHATBRIDGE_LOG_LEVEL")
	if level == "" {
		level = configLevel
	}

	set, unknown := parseCategories(cats)
	enabled.Store(&set)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})))

	if len(unknown) > 0 {
		slog.Warn("ignoring unknown debug categories", "categories", unknown, "known", Known)
	}
}

// Enabled reports whether debug output is active for category.
func Enabled(category Category) bool {
	set := *enabled.Load()
	return set[All] || set[category]
}

// Log emits a DEBUG record tagged with category when it is enabled.
func Log(category Category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", string(category)}, args...)...)
}

// Trace emits a TRACE record tagged with category when it is enabled.
func Trace(category Category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", string(category)}, args...)...)
}

// TraceIsEnabled reports whether category is enabled and the default
// logger accepts TRACE records.
func TraceIsEnabled(category Category) bool {
	return Enabled(category) && slog.Default().Enabled(context.Background(), LevelTrace)
}

// Raw writes text to stderr unformatted, for copy-paste-ready HTTP bodies.
// Only emitted when TraceIsEnabled(category).
func Raw(category Category, text string) {
	if !TraceIsEnabled(category) {
		return
	}
	fmt.Fprintln(os.Stderr, text)
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories in sorted order.
func Categories() []string {
	set := *enabled.Load()
	result := make([]string, 0, len(set))
	for c := range set {
		result = append(result, string(c))
	}
	slices.Sort(result)
	return result
}

// Truncate shortens s to at most maxLen bytes without splitting a UTF-8
// sequence, appending "..." when anything was cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// parseCategories parses a comma-separated category list. Names are
// case-insensitive. Unknown names are returned separately.
func parseCategories(s string) (categorySet, []string) {
	set := make(categorySet)
	var unknown []string
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		c := Category(name)
		if !slices.Contains(Known, c) {
			unknown = append(unknown, name)
			continue
		}
		set[c] = true
	}
	return set, unknown
}
