package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"picoclock/clocks"
)

func writeDefaultPlan(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, run([]string{"init", "-xosc", "12MHz"}, &buf))
	path := filepath.Join(t.TempDir(), "clocks.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func rows(out string) map[string][]string {
	m := make(map[string][]string)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n")[1:] {
		f := strings.Fields(line)
		m[f[0]] = f[1:]
	}
	return m
}

func TestPlanText(t *testing.T) {
	path := writeDefaultPlan(t)

	var out bytes.Buffer
	require.NoError(t, run([]string{"plan", path}, &out))
	assert.True(t, strings.HasPrefix(out.String(), "CLOCK"))

	r := rows(out.String())
	require.Len(t, r, int(clocks.NumClocks))
	assert.Equal(t, []string{"configured", "pll_sys", "1", "150", "MHz"}, r["sys"])
	assert.Equal(t, []string{"configured", "pll_usb", "1", "48", "MHz"}, r["usb"])
	assert.Equal(t, []string{"configured", "xosc", "1", "12", "MHz"}, r["ref"])
	assert.Equal(t, []string{"unconfigured", "-", "-", "0", "Hz"}, r["gpout0"])
}

func TestPlanYAML(t *testing.T) {
	path := writeDefaultPlan(t)

	var out bytes.Buffer
	require.NoError(t, run([]string{"plan", "-o", "yaml", path}, &out))

	var got []struct {
		Clock     string `yaml:"clock"`
		State     string `yaml:"state"`
		Source    string `yaml:"source"`
		Divider   uint32 `yaml:"divider"`
		Frequency uint32 `yaml:"frequency_hz"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, int(clocks.NumClocks))

	sys := got[clocks.ClkSys]
	assert.Equal(t, "sys", sys.Clock)
	assert.Equal(t, "configured", sys.State)
	assert.Equal(t, "pll_sys", sys.Source)
	assert.Equal(t, uint32(150_000_000), sys.Frequency)
}

func TestPlanErrors(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, run(nil, &out), errUsage)
	assert.ErrorIs(t, run([]string{"reset"}, &out), errUsage)
	assert.Error(t, run([]string{"plan"}, &out))
	assert.Error(t, run([]string{"plan", filepath.Join(t.TempDir(), "missing.toml")}, &out))
	assert.Error(t, run([]string{"plan", "-o", "json", writeDefaultPlan(t)}, &out))
	assert.Error(t, run([]string{"init", "-xosc", "fast"}, &out))
}

func TestParseSet(t *testing.T) {
	req, err := parseSet("gpout0", "pll_sys", 0, "10 MHz")
	require.NoError(t, err)
	assert.Equal(t, clocks.ClkGPOut0, req.clock)
	assert.Equal(t, clocks.SourcePLLSys, req.source)
	assert.Zero(t, req.divider)
	assert.Equal(t, 10*clocks.MHz, req.target)

	req, err = parseSet("peri", "clk_sys", 2, "")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), req.divider)
	assert.Zero(t, req.target)

	for _, tt := range []struct {
		clock, source string
		div           uint
		freq          string
	}{
		{"cpu", "xosc", 1, ""},
		{"sys", "pll_audio", 1, ""},
		{"sys", "pll_sys", 0, ""},
		{"sys", "pll_sys", 1, "1 MHz"},
		{"sys", "pll_sys", 0, "many"},
	} {
		_, err := parseSet(tt.clock, tt.source, tt.div, tt.freq)
		assert.Error(t, err, "%+v", tt)
	}
}
