package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/hintprefs/internal/config"
)

type harness struct {
	t    *testing.T
	args []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	return &harness{t: t, args: []string{
		"-config", filepath.Join(dir, "config.toml"),
		"-env-file", filepath.Join(dir, ".env"),
		"-backend", "toml",
		"-path", filepath.Join(dir, "blacklists.toml"),
	}}
}

func (h *harness) exec(stdin string, args ...string) (int, string, string) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append(append([]string{}, h.args...), args...), strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (h *harness) ok(args ...string) string {
	h.t.Helper()
	code, out, errOut := h.exec("", args...)
	require.Equal(h.t, 0, code, "stderr: %s", errOut)
	return out
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	code := run([]string{"-version"}, nil, &out, &bytes.Buffer{})
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "hintprefs dev")
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)

	code, _, errOut := h.exec("")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Usage: hintprefs")

	code, _, errOut = h.exec("", "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "frobnicate"`)

	code, _, errOut = h.exec("", "show")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "not enough arguments")
}

func TestLangs(t *testing.T) {
	h := newHarness(t)
	h.ok("add", "groovy", "com.acme.*")

	out := h.ok("langs")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.True(t, strings.HasPrefix(lines[1], "xml"), "shortest display name first: %q", lines[1])
	assert.Contains(t, lines[1], "options only")
	assert.Contains(t, out, "customized")
}

func TestAddShowDiffRemove(t *testing.T) {
	h := newHarness(t)

	h.ok("add", "kotlin", "com.acme.Foo.bar")
	assert.Contains(t, h.ok("show", "kotlin"), "com.acme.Foo.bar\n")

	diff := h.ok("diff")
	assert.Equal(t, "kotlin:\n  + com.acme.Foo.bar\n", diff)

	h.ok("remove", "kotlin", "com.acme.Foo.bar", "kotlin.*")
	show := h.ok("show", "kotlin")
	assert.NotContains(t, show, "com.acme.Foo.bar")
	assert.NotContains(t, show, "kotlin.*")

	assert.Equal(t, "kotlin:\n  - kotlin.*\n", h.ok("diff", "KOTLIN"))
	assert.Equal(t, "java: no changes\n", h.ok("diff", "java"))
}

func TestAddInvalidPattern(t *testing.T) {
	h := newHarness(t)

	code, _, errOut := h.exec("", "add", "java", "not valid(")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid exclusion patterns")
	assert.Equal(t, "", h.ok("diff"))
}

func TestRemoveUnlisted(t *testing.T) {
	h := newHarness(t)
	code, _, errOut := h.exec("", "remove", "groovy", "nope.*")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not in the list")
}

func TestSetAndReset(t *testing.T) {
	h := newHarness(t)

	code, _, errOut := h.exec("a.b.*\r\n\r\n(x, y)\n", "set", "groovy")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "(x, y)\na.b.*\n", h.ok("show", "groovy"))

	h.ok("reset", "groovy")
	assert.Equal(t, "", h.ok("diff"))
	assert.Contains(t, h.ok("show", "groovy"), "*.println(*)")
}

func TestShowUnsupported(t *testing.T) {
	h := newHarness(t)

	code, _, errOut := h.exec("", "show", "xml")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "does not support")

	code, _, errOut = h.exec("", "show", "cobol")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown language")
}

// optionRow returns the VALUE and DEFAULT columns of id in options output.
func optionRow(t *testing.T, out, id string) (value, def string) {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 4 && fields[0] == id {
			return fields[len(fields)-2], fields[len(fields)-1]
		}
	}
	t.Fatalf("option %s not listed in:\n%s", id, out)
	return "", ""
}

func TestOptions(t *testing.T) {
	h := newHarness(t)
	const id = "java.show.for.non.literals"

	out := h.ok("options", "java")
	value, def := optionRow(t, out, id)
	assert.Equal(t, "false", value)
	assert.Equal(t, "false", def)
	assert.Contains(t, h.ok("options", "groovy"), "Groovy has no options")

	out = h.ok("options", "java", id+"=true")
	value, _ = optionRow(t, out, id)
	assert.Equal(t, "true", value)

	value, def = optionRow(t, h.ok("options", "java"), id)
	assert.Equal(t, "true", value, "option value must survive a restart")
	assert.Equal(t, "false", def)

	h.ok("options", "java", id+"=false")
	value, _ = optionRow(t, h.ok("options", "java"), id)
	assert.Equal(t, "false", value)
}

func TestOptionsBadSettings(t *testing.T) {
	h := newHarness(t)

	code, _, errOut := h.exec("", "options", "java", "java.show.for.non.literals")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "<id>=<true|false>")

	code, _, errOut = h.exec("", "options", "java", "java.show.for.non.literals=maybe")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "<id>=<true|false>")

	code, _, errOut = h.exec("", "options", "java", "kotlin.show.for.non.literals=true")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown option")
}

func TestEnableWatch(t *testing.T) {
	watchCmd, ok := lookupCommand("watch")
	require.True(t, ok)
	showCmd, ok := lookupCommand("show")
	require.True(t, ok)

	tests := []struct {
		name       string
		configured bool
		cmd        command
		want       bool
	}{
		{"off for one-shot command", false, showCmd, false},
		{"config kept for one-shot command", true, showCmd, true},
		{"on for watch", false, watchCmd, true},
		{"config kept for watch", true, watchCmd, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Watch.Enabled = tt.configured
			enableWatch(cfg, tt.cmd)
			assert.Equal(t, tt.want, cfg.Watch.Enabled)
		})
	}
}

func TestCheck(t *testing.T) {
	h := newHarness(t)

	out := h.ok("check", "java", "java.lang.Math.max(a, b)")
	assert.Contains(t, out, "hints suppressed for java.lang.Math.max by:")
	assert.Contains(t, out, "java.lang.Math.*")

	out = h.ok("check", "java", "com.acme.Widget.resize(width, height)")
	assert.Equal(t, "hints shown for com.acme.Widget.resize\n", out)

	code, _, errOut := h.exec("", "check", "java", "*.foo(x)")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid call")
}
