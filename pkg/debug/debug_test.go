package debug

import (
	"log/slog"
	"slices"
	"testing"
)

// setCategories enables the given list for the duration of the test.
func setCategories(t *testing.T, s string) {
	t.Helper()
	orig := enabled.Load()
	t.Cleanup(func() { enabled.Store(orig) })
	set, _ := parseCategories(s)
	enabled.Store(&set)
}

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Category
		unknown []string
	}{
		{"empty", "", nil, nil},
		{"single", "providers", []Category{Providers}, nil},
		{"multiple", "providers,adapter", []Category{Providers, Adapter}, nil},
		{"all", "all", []Category{All}, nil},
		{"with spaces", " providers , adapter ", []Category{Providers, Adapter}, nil},
		{"uppercase normalized", "PROVIDERS,Adapter", []Category{Providers, Adapter}, nil},
		{"empty segments", "providers,,adapter", []Category{Providers, Adapter}, nil},
		{"unknown", "providers,engine,MCP", []Category{Providers}, []string{"engine", "mcp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unknown := parseCategories(tt.input)
			if len(got) != len(tt.want) {
				t.Errorf("len(got) = %d, want %d", len(got), len(tt.want))
			}
			for _, c := range tt.want {
				if !got[c] {
					t.Errorf("%q not enabled", c)
				}
			}
			if !slices.Equal(unknown, tt.unknown) {
				t.Errorf("unknown = %v, want %v", unknown, tt.unknown)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	setCategories(t, "providers,adapter")

	if !Enabled(Providers) {
		t.Error("providers should be enabled")
	}
	if !Enabled(Adapter) {
		t.Error("adapter should be enabled")
	}
	if Enabled(Template) {
		t.Error("template should not be enabled")
	}
	if Enabled(All) {
		t.Error("all should not be enabled (not in categories)")
	}
}

func TestEnabled_All(t *testing.T) {
	setCategories(t, "all")

	for _, c := range Known {
		if !Enabled(c) {
			t.Errorf("%s should be enabled via 'all'", c)
		}
	}
}

func TestEnabled_Empty(t *testing.T) {
	setCategories(t, "")

	if Enabled(Providers) {
		t.Error("nothing should be enabled when no categories set")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"TRACE", LevelTrace},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "short", 10, "short"},
		{"exact", "0123456789", 10, "0123456789"},
		{"long", "this is a long string", 10, "this is a ..."},
		{"multibyte boundary", "café au lait", 4, "caf..."},
		{"after multibyte", "café au lait", 5, "café..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestLog_DisabledCategory(t *testing.T) {
	setCategories(t, "")

	// Should not panic or produce output.
	Log(Providers, "test message", "key", "value")
	Trace(Providers, "trace message", "key", "value")
	Raw(Providers, "raw body")
}

func TestCategories_Sorted(t *testing.T) {
	setCategories(t, "streaming,adapter,providers")

	got := Categories()
	want := []string{"adapter", "providers", "streaming"}
	if !slices.Equal(got, want) {
		t.Errorf("Categories() = %v, want %v", got, want)
	}
}

func TestInit_EnvOverridesConfig(t *testing.T) {
	setCategories(t, "")
	origLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(origLogger) })

	t.Setenv("CHATBRIDGE_DEBUG", "template")
	t.Setenv("CHATBRIDGE_LOG_LEVEL", "")

	Init("providers", "DEBUG")

	if !Enabled(Template) {
		t.Error("template should be enabled from environment")
	}
	if Enabled(Providers) {
		t.Error("providers from config should be overridden by environment")
	}
	if TraceIsEnabled(Template) {
		t.Error("trace should not be enabled at DEBUG level")
	}
}

func TestInit_Trace(t *testing.T) {
	setCategories(t, "")
	origLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(origLogger) })

	t.Setenv("CHATBRIDGE_DEBUG", "")
	t.Setenv("CHATBRIDGE_LOG_LEVEL", "")

	Init("providers,bogus", "TRACE")

	if !TraceIsEnabled(Providers) {
		t.Error("trace should be enabled for providers")
	}
	if TraceIsEnabled(Streaming) {
		t.Error("trace should not be enabled for a disabled category")
	}
	if got := Categories(); !slices.Equal(got, []string{"providers"}) {
		t.Errorf("Categories() = %v, want [providers]", got)
	}
}
