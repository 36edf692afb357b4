package plan

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picoclock/clocks"
	"picoclock/targets/sim"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		in   string
		want clocks.Hertz
	}{
		{"48000000", 48 * clocks.MHz},
		{"48 MHz", 48 * clocks.MHz},
		{"12mhz", 12 * clocks.MHz},
		{"32.768 kHz", 32768},
		{"1.5MHz", 1500 * clocks.KHz},
		{"500 Hz", 500},
	}
	for _, tt := range tests {
		got, err := ParseFrequency(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "MHz", "fast", "1.0000001 Hz", "5000 MHz", "-3"} {
		_, err := ParseFrequency(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoad(t *testing.T) {
	p, err := Load("testdata/gpin.toml")
	require.NoError(t, err)

	assert.Equal(t, 12*clocks.MHz, p.XOSC.Frequency.Hertz())
	assert.Equal(t, 1*clocks.MHz, p.GPIn.GPIn0.Hertz())
	assert.True(t, p.ROSC.enabled())
	assert.Nil(t, p.PLL.Sys)
	require.Len(t, p.Clocks, 3)
	assert.Equal(t, ClockStep{Name: "gpout0", Source: "clk_sys", Frequency: Frequency(500 * clocks.KHz)}, p.Clocks[2])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/nope.toml")
	assert.ErrorContains(t, err, "nope.toml")
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader(`
[xosc]
frequency = 12000000
startup = 3
`))
	require.ErrorIs(t, err, ErrUnknownKey)
	assert.Contains(t, err.Error(), "xosc.startup")
}

func TestDecodePLLSections(t *testing.T) {
	p, err := Decode(strings.NewReader(`
[xosc]
frequency = "12 MHz"

[pll.sys]
refdiv = 1
fbdiv = 125
postdiv1 = 6
postdiv2 = 2

[pll.usb]
frequency = "48 MHz"
`))
	require.NoError(t, err)
	cfg, err := p.PLL.Sys.Settings(12 * clocks.MHz)
	require.NoError(t, err)
	assert.Equal(t, clocks.PLLSys125MHz, cfg)

	cfg, err = p.PLL.USB.Settings(12 * clocks.MHz)
	require.NoError(t, err)
	assert.Equal(t, 48*clocks.MHz, cfg.Output(12*clocks.MHz))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"xosc range", "[xosc]\nfrequency = \"60 MHz\"\n", clocks.ErrFrequencyRange},
		{"pll without crystal", "[pll.sys]\nfrequency = 150000000\n", ErrPLLNeedsXOSC},
		{"bad pll", "[xosc]\nfrequency = 12000000\n[pll.sys]\nrefdiv = 1\nfbdiv = 10\npostdiv1 = 1\npostdiv2 = 1\n", clocks.ErrInvalidPLLConfig},
		{"pll both", "[xosc]\nfrequency = 12000000\n[pll.sys]\nrefdiv = 1\nfrequency = 1\n", ErrAmbiguousStep},
		{"clock name", "[[clock]]\nname = \"clk_foo\"\nsource = \"xosc\"\ndivider = 1\n", clocks.ErrUnknownClock},
		{"source name", "[[clock]]\nname = \"sys\"\nsource = \"pll_audio\"\ndivider = 1\n", clocks.ErrInvalidSource},
		{"not a candidate", "[[clock]]\nname = \"ref\"\nsource = \"pll_sys\"\ndivider = 1\n", clocks.ErrInvalidSource},
		{"divider range", "[[clock]]\nname = \"peri\"\nsource = \"clk_sys\"\ndivider = 5\n", clocks.ErrDividerRange},
		{"no divider", "[[clock]]\nname = \"peri\"\nsource = \"clk_sys\"\n", ErrAmbiguousStep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	_, err := Decode(strings.NewReader(`
[[clock]]
name = "ref"
source = "pll_sys"
divider = 1

[[clock]]
name = "peri"
source = "clk_sys"
divider = 9
`))
	assert.ErrorIs(t, err, clocks.ErrInvalidSource)
	assert.ErrorIs(t, err, clocks.ErrDividerRange)
	assert.Contains(t, err.Error(), "clock[1]")
}

func TestApplyGPIn(t *testing.T) {
	p, err := Load("testdata/gpin.toml")
	require.NoError(t, err)

	m := sim.New(sim.Config{XOSC: 12 * clocks.MHz, ROSC: clocks.RingOscillatorNominal, GPIn: [2]clocks.Hertz{1 * clocks.MHz}})
	tree, err := p.Apply(m, clocks.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 1*clocks.MHz, tree.Manager.Sys().Frequency())
	assert.Equal(t, clocks.SourceGPIN0, tree.Manager.Sys().Source())
	assert.Equal(t, 1*clocks.MHz, m.Frequency(clocks.ClkSys))

	gp := tree.Manager.GPOut(0)
	assert.Equal(t, 500*clocks.KHz, gp.Frequency())
	assert.Equal(t, uint32(2), gp.Divider())
	assert.Equal(t, 500*clocks.KHz, m.Frequency(clocks.ClkGPOut0))
}

func TestApplyDefaultMatchesBringUp(t *testing.T) {
	m := sim.New(sim.DefaultConfig())
	tree, err := Default(12*clocks.MHz).Apply(m, clocks.DefaultConfig())
	require.NoError(t, err)

	ref := sim.New(sim.DefaultConfig())
	want, err := clocks.InitClocksAndPLLs(ref, 12*clocks.MHz, clocks.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, want.Manager.Snapshot(), tree.Manager.Snapshot())
	for id := clocks.ClockID(0); id < clocks.NumClocks; id++ {
		assert.Equal(t, ref.Frequency(id), m.Frequency(id), id.String())
	}
}

func TestApplyFailingStep(t *testing.T) {
	p, err := Decode(strings.NewReader(`
[[clock]]
name = "gpout1"
source = "rosc"
frequency = "7 MHz"
`))
	require.NoError(t, err)

	tree, err := p.Apply(sim.New(sim.DefaultConfig()), clocks.DefaultConfig())
	require.ErrorIs(t, err, clocks.ErrUnachievableFrequency)
	assert.Contains(t, err.Error(), "clock[0]")
	assert.Equal(t, clocks.StateUnconfigured, tree.Manager.GPOut(1).State())
}

func TestApplyCrystalFailure(t *testing.T) {
	m := sim.New(sim.DefaultConfig())
	m.XoscBlock().Fail()
	_, err := Default(12*clocks.MHz).Apply(m, clocks.DefaultConfig())
	assert.ErrorIs(t, err, clocks.ErrNotStable)
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default(16*clocks.MHz).Encode(&buf))
	assert.Contains(t, buf.String(), `frequency = "16 MHz"`)

	p, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, Default(16*clocks.MHz), p)
}
