package output

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(isTTY bool, mode Mode) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		isTTY bool
		mode  Mode
		want  Mode
	}{
		{"auto on tty", true, ModeAuto, ModeText},
		{"auto piped", false, ModeAuto, ModeMarkdown},
		{"empty is auto", false, "", ModeMarkdown},
		{"forced json", true, ModeJSON, ModeJSON},
		{"forced text", false, ModeText, ModeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestRenderer_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR", "")
	r, _, _ := newTestRenderer(true, ModeText)
	assert.Equal(t, lipgloss.Color("42"), r.Styles().Success.GetForeground())

	t.Setenv("NO_COLOR", "1")
	r, _, _ = newTestRenderer(true, ModeText)
	assert.Equal(t, lipgloss.NoColor{}, r.Styles().Success.GetForeground())
}

func TestNewRenderer_BufferIsNotTTY(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
}

func TestRenderer_Table(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(false, ModeText)
		r.Table([]string{"name", "size"}, [][]string{{"_array_v_exc", "4"}})
		assert.Contains(t, out.String(), "┌")
		assert.Contains(t, out.String(), "_array_v_exc")
		assert.Contains(t, out.String(), "NAME")
	})

	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(false, ModeMarkdown)
		r.Table([]string{"name", "size"}, [][]string{{"a", "1"}, {"b", "2"}})
		assert.Contains(t, out.String(), "| a | 1 |")
		assert.Contains(t, out.String(), "| --- |")
	})

	t.Run("empty", func(t *testing.T) {
		r, out, _ := newTestRenderer(false, ModeText)
		r.Table([]string{"name"}, nil)
		assert.Equal(t, "(0 rows)\n", out.String())
	})
}

func TestRenderer_Messages(t *testing.T) {
	r, out, errOut := newTestRenderer(false, ModeText)
	r.Header(1, "Arrays")
	r.Success("built")
	r.Muted("quiet")
	r.StatusLine("objects.cpp", "success", "written")
	r.StatusLine("objects.h", "skipped", "")
	r.Warning("careful")
	r.Error("broken")

	assert.Equal(t, "Arrays\n✓ built\nquiet\n  ✓ objects.cpp  written\n  - objects.h\n", out.String())
	assert.Equal(t, "! careful\n✗ broken\n", errOut.String())
}

func TestRenderer_MarkdownHeader(t *testing.T) {
	r, out, _ := newTestRenderer(false, ModeMarkdown)
	r.Header(2, "Models")
	assert.Equal(t, "## Models\n\n", out.String())
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(false, ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"arrays": 3}))
	assert.JSONEq(t, `{"arrays": 3}`, out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Deep", FormatHeader(3, "Deep"))
	assert.Equal(t, "- **Model:** net_model", FormatKeyValue("Model", "net_model"))
}
