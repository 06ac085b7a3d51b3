package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderTable(t *testing.T) {
	t.Parallel()

	rows := []map[string]any{
		{"name": "Globex", "id": "c-2", "total": 1200.5, "tags": []any{"a"}},
		{"id": "c-1", "name": "Initech", "active": true},
	}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "table", rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, []string{"ID", "ACTIVE", "NAME", "TOTAL"}, strings.Fields(lines[0]))
	require.Equal(t, []string{"c-2", "Globex", "1200.5"}, strings.Fields(lines[1]))
	require.Equal(t, []string{"c-1", "true", "Initech"}, strings.Fields(lines[2]))
}

func TestRenderObjectTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "table", whoami{User: "Ada", Role: "admin", Plan: "Pro"}))

	out := buf.String()
	require.Contains(t, out, "plan")
	require.Regexp(t, `(?m)^role\s+admin$`, out)
	require.Regexp(t, `(?m)^twoFactor\s+false$`, out)
}

func TestRenderFormats(t *testing.T) {
	t.Parallel()

	v := moduleAccess{Module: "invoices", Feature: "invoice", Enabled: true}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "json", v))
	require.JSONEq(t, `{"module":"invoices","feature":"invoice","enabled":true}`, buf.String())

	buf.Reset()
	require.NoError(t, render(&buf, "yaml", v))
	require.Equal(t, "enabled: true\nfeature: invoice\nmodule: invoices\n", buf.String())
}

func TestCell(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", cell(nil))
	require.Equal(t, "3", cell(3.0))
	require.Equal(t, "0.25", cell(0.25))
	require.Equal(t, `{"a":1}`, cell(map[string]any{"a": 1.0}))
}
