package console

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"blp-icon-converter/internal/convert"
)

var spaces = regexp.MustCompile(`\s+`)

func plain(s string) string {
	return spaces.ReplaceAllString(ansi.Strip(s), " ")
}

func TestRenderSummary_ScenarioCounts(t *testing.T) {
	p := New(&bytes.Buffer{}, false)
	got := plain(p.RenderSummary(convert.RunStats{Total: 1, Converted: 1, BytesWritten: 2048}))

	for _, want := range []string{"Converted: 1", "Skipped: 0", "Not found/Failed: 0", "Written: 2.0 KiB", "1/1 in place", "Icons converted successfully."} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary %q missing %q", got, want)
		}
	}
}

func TestRenderSummary_NoSuccessLineWithoutConversions(t *testing.T) {
	p := New(&bytes.Buffer{}, false)
	got := plain(p.RenderSummary(convert.RunStats{Total: 2, Skipped: 1, NotFound: 1}))
	if strings.Contains(got, "successfully") {
		t.Fatalf("unexpected success line in %q", got)
	}
	if !strings.Contains(got, "Not found/Failed: 1") || strings.Contains(got, "Written:") {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestRenderSummary_DryRunReportsWouldConvert(t *testing.T) {
	p := New(&bytes.Buffer{}, false)
	got := plain(p.RenderSummary(convert.RunStats{Total: 2, Converted: 1, NotFound: 1, DryRun: true}))
	if strings.Contains(got, "successfully") {
		t.Fatalf("dry run summary claims success: %q", got)
	}
	if !strings.Contains(got, "Dry run: 1 icon(s) would be converted.") {
		t.Fatalf("summary %q missing dry run line", got)
	}
}

func TestRenderSummary_Interrupted(t *testing.T) {
	p := New(&bytes.Buffer{}, false)
	got := plain(p.RenderSummary(convert.RunStats{Total: 2, Interrupted: true}))
	if !strings.Contains(got, "Interrupted before all tasks ran.") {
		t.Fatalf("summary %q missing interruption notice", got)
	}
}

func TestPrinterPlainOutputHasNoEscapes(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, false)
	p.Header(convert.Config{SourceRoot: "/src", DestDir: "/dst", DryRun: true}, 2)
	p.Summary(convert.RunStats{Total: 2, Converted: 2})
	p.Fatal(errors.New("destination icon directory not found"), "create it first")

	if strings.Contains(out.String(), "\x1b[") {
		t.Fatalf("plain output contains ANSI escapes: %q", out.String())
	}
	text := out.String()
	for _, want := range []string{"Converting 2 icon(s)", "source: /src", "dry run", "Error: destination icon directory not found", "create it first"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}
