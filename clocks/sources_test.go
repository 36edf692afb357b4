package clocks_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picoclock/clocks"
	"picoclock/targets/sim"
)

func TestFrequencyIsPure(t *testing.T) {
	m := sim.New(sim.DefaultConfig())
	tree, err := clocks.InitClocksAndPLLs(m, 12*clocks.MHz, clocks.DefaultConfig())
	require.NoError(t, err)
	tree.AddExternal(clocks.NewGPIn0(1 * clocks.MHz))

	sources := []clocks.Source{
		tree.XOSC, tree.ROSC, tree.LPOSC, tree.PLLSys, tree.PLLUSB, tree.GPIn[0],
		tree.Manager.Sys(), tree.Manager.Ref(), tree.Manager.USB(),
	}
	for _, s := range sources {
		first := s.Frequency()
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, s.Frequency(), s.SourceID().String())
		}
	}
}

func TestParseSourceID(t *testing.T) {
	id, ok := clocks.ParseSourceID("pll_usb")
	require.True(t, ok)
	assert.Equal(t, clocks.SourcePLLUSB, id)

	id, ok = clocks.ParseSourceID("clk_ref")
	require.True(t, ok)
	assert.Equal(t, clocks.SourceClkRef, id)

	id, ok = clocks.ParseSourceID("peri")
	require.True(t, ok)
	assert.Equal(t, clocks.SourceClkPeri, id)

	_, ok = clocks.ParseSourceID("none")
	assert.False(t, ok)
	_, ok = clocks.ParseSourceID("pll_audio")
	assert.False(t, ok)

	c, ok := clocks.ParseClockID("clk_gpout2")
	require.True(t, ok)
	assert.Equal(t, clocks.ClkGPOut2, c)
}

func TestExternalAndLowPowerSources(t *testing.T) {
	g0 := clocks.NewGPIn0(1 * clocks.MHz)
	g1 := clocks.NewGPIn1(25 * clocks.MHz)
	assert.Equal(t, 1*clocks.MHz, g0.Frequency())
	assert.Equal(t, clocks.SourceGPIN0, g0.SourceID())
	assert.Equal(t, clocks.SourceGPIN1, g1.SourceID())

	var lp clocks.LowPowerOscillator
	assert.Equal(t, clocks.Hertz(32768), lp.Frequency())
}

func TestCrystalOscillator(t *testing.T) {
	m := sim.New(sim.DefaultConfig())

	_, err := clocks.EnableCrystalOscillator(m.XOSC(), 60*clocks.MHz)
	require.ErrorIs(t, err, clocks.ErrFrequencyRange)
	assert.False(t, m.XoscBlock().Enabled())

	x, err := clocks.EnableCrystalOscillator(m.XOSC(), 12*clocks.MHz)
	require.NoError(t, err)
	freqRange, delay := m.XoscBlock().Programming()
	assert.Equal(t, uint32(0xaa0), freqRange)
	assert.Equal(t, uint32(47), delay)

	stable, err := x.WaitStable(100)
	require.NoError(t, err)
	assert.Equal(t, 12*clocks.MHz, stable.Frequency())
	assert.Equal(t, clocks.SourceXOSC, stable.SourceID())

	assert.PanicsWithValue(t, "clocks: xosc handle already consumed", func() {
		_, _ = x.WaitStable(100)
	})
}

func TestCrystalOscillatorNeverStable(t *testing.T) {
	m := sim.New(sim.DefaultConfig())
	m.XoscBlock().Fail()

	x, err := clocks.EnableCrystalOscillator(m.XOSC(), 12*clocks.MHz)
	require.NoError(t, err)
	_, err = x.WaitStable(1000)
	require.ErrorIs(t, err, clocks.ErrNotStable)

	_, err = clocks.AdoptCrystalOscillator(m.XOSC(), 12*clocks.MHz)
	require.ErrorIs(t, err, clocks.ErrNotStable)
}

func TestRingOscillator(t *testing.T) {
	m := sim.New(sim.DefaultConfig())

	adopted, err := clocks.AdoptRingOscillator(m.ROSC(), 0)
	require.NoError(t, err)
	assert.Equal(t, clocks.RingOscillatorNominal, adopted.Frequency())

	m.RoscBlock().Stop()
	_, err = clocks.AdoptRingOscillator(m.ROSC(), 0)
	require.ErrorIs(t, err, clocks.ErrNotStable)

	r := clocks.NewRingOscillator(m.ROSC(), 6500*clocks.KHz)
	on, err := r.Enable(10)
	require.NoError(t, err)
	assert.Equal(t, 6500*clocks.KHz, on.Frequency())
	assert.Equal(t, clocks.SourceROSC, on.SourceID())
	assert.Panics(t, func() { _, _ = r.Enable(10) })
}

func TestPLLPresets(t *testing.T) {
	ref := 12 * clocks.MHz
	for _, tt := range []struct {
		name string
		cfg  clocks.PLLConfig
		want clocks.Hertz
	}{
		{"sys150", clocks.PLLSys150MHz, 150 * clocks.MHz},
		{"sys125", clocks.PLLSys125MHz, 125 * clocks.MHz},
		{"usb48", clocks.PLLUSB48MHz, 48 * clocks.MHz},
	} {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.cfg.Validate(ref))
			assert.Equal(t, tt.want, tt.cfg.Output(ref))
		})
	}
}

func TestPLLValidate(t *testing.T) {
	ref := 12 * clocks.MHz
	bad := []clocks.PLLConfig{
		{RefDiv: 0, FBDiv: 125, PostDiv1: 5, PostDiv2: 2},
		{RefDiv: 1, FBDiv: 15, PostDiv1: 5, PostDiv2: 2},
		{RefDiv: 1, FBDiv: 125, PostDiv1: 8, PostDiv2: 2},
		{RefDiv: 1, FBDiv: 125, PostDiv1: 5, PostDiv2: 0},
		{RefDiv: 3, FBDiv: 125, PostDiv1: 5, PostDiv2: 2}, // 4 MHz reference
		{RefDiv: 1, FBDiv: 50, PostDiv1: 5, PostDiv2: 2},  // VCO 600 MHz
		{RefDiv: 1, FBDiv: 140, PostDiv1: 5, PostDiv2: 2}, // VCO 1680 MHz
	}
	for _, cfg := range bad {
		assert.ErrorIs(t, cfg.Validate(ref), clocks.ErrInvalidPLLConfig, "%+v", cfg)
	}
}

func TestSolvePLL(t *testing.T) {
	cfg, err := clocks.SolvePLL(12*clocks.MHz, 150*clocks.MHz)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate(12*clocks.MHz))
	assert.Equal(t, 150*clocks.MHz, cfg.Output(12*clocks.MHz))
	assert.GreaterOrEqual(t, cfg.PostDiv1, cfg.PostDiv2)

	cfg, err = clocks.SolvePLL(12*clocks.MHz, 48*clocks.MHz)
	require.NoError(t, err)
	assert.Equal(t, 48*clocks.MHz, cfg.Output(12*clocks.MHz))

	_, err = clocks.SolvePLL(12*clocks.MHz, 2*clocks.MHz)
	assert.ErrorIs(t, err, clocks.ErrUnachievableFrequency)
}

func TestPLLLock(t *testing.T) {
	m := sim.New(sim.DefaultConfig())
	xosc := stableXOSC(t, m)

	p := clocks.NewPLL(clocks.PLLSys, m.PLL(clocks.PLLSys))
	locked, err := p.Lock(xosc, clocks.PLLSys125MHz, 100)
	require.NoError(t, err)
	assert.Equal(t, 125*clocks.MHz, locked.Frequency())
	assert.Equal(t, clocks.SourcePLLSys, locked.SourceID())
	assert.Equal(t, 1500*clocks.MHz, locked.VCO())
	assert.Equal(t, 1, m.PLLBlock(clocks.PLLSys).ProgramCount())

	assert.PanicsWithValue(t, "clocks: pll handle already consumed", func() {
		_, _ = p.Lock(xosc, clocks.PLLSys125MHz, 100)
	})
}

func TestPLLLockRejectsBadConfigBeforeTouchingHardware(t *testing.T) {
	m := sim.New(sim.DefaultConfig())
	xosc := stableXOSC(t, m)

	p := clocks.NewPLL(clocks.PLLUSB, m.PLL(clocks.PLLUSB))
	_, err := p.Lock(xosc, clocks.PLLConfig{RefDiv: 1, FBDiv: 10, PostDiv1: 1, PostDiv2: 1}, 100)
	require.ErrorIs(t, err, clocks.ErrInvalidPLLConfig)
	assert.Zero(t, m.PLLBlock(clocks.PLLUSB).ProgramCount())

	// The handle is still usable after a failed attempt.
	locked, err := p.Lock(xosc, clocks.PLLUSB48MHz, 100)
	require.NoError(t, err)
	assert.Equal(t, 48*clocks.MHz, locked.Frequency())
}

func TestPLLNeverLocks(t *testing.T) {
	m := sim.New(sim.DefaultConfig())
	xosc := stableXOSC(t, m)
	m.PLLBlock(clocks.PLLSys).Fail()

	_, err := clocks.NewPLL(clocks.PLLSys, m.PLL(clocks.PLLSys)).Lock(xosc, clocks.PLLSys150MHz, 100)
	require.ErrorIs(t, err, clocks.ErrNotLocked)
	assert.Contains(t, err.Error(), "pll_sys")
}

func TestPLLAlreadyLockedIsNotReprogrammed(t *testing.T) {
	m := sim.New(sim.DefaultConfig())
	xosc := stableXOSC(t, m)
	m.PLLBlock(clocks.PLLSys).Preload(clocks.PLLSys150MHz)

	locked, err := clocks.NewPLL(clocks.PLLSys, m.PLL(clocks.PLLSys)).Lock(xosc, clocks.PLLSys150MHz, 100)
	require.NoError(t, err)
	assert.Equal(t, 150*clocks.MHz, locked.Frequency())
	assert.Zero(t, m.PLLBlock(clocks.PLLSys).ProgramCount())

	adopted, err := clocks.AdoptPLL(clocks.PLLSys, m.PLL(clocks.PLLSys), xosc)
	require.NoError(t, err)
	assert.Equal(t, clocks.PLLSys150MHz, adopted.Config())

	_, err = clocks.AdoptPLL(clocks.PLLUSB, m.PLL(clocks.PLLUSB), xosc)
	assert.True(t, errors.Is(err, clocks.ErrNotLocked))
}

func stableXOSC(t *testing.T, m *sim.Machine) *clocks.StableCrystalOscillator {
	t.Helper()
	x, err := clocks.EnableCrystalOscillator(m.XOSC(), 12*clocks.MHz)
	require.NoError(t, err)
	s, err := x.WaitStable(100)
	require.NoError(t, err)
	return s
}
