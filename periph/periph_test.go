package periph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picoclock/clocks"
	"picoclock/targets/sim"
)

func bootedTree(t *testing.T) *clocks.Tree {
	t.Helper()
	tree, err := clocks.InitClocksAndPLLs(sim.New(sim.DefaultConfig()), 12*clocks.MHz, clocks.DefaultConfig())
	require.NoError(t, err)
	return tree
}

func TestUARTDivisors(t *testing.T) {
	tests := []struct {
		peri       clocks.Hertz
		baud       uint32
		ibrd, fbrd uint32
		actual     uint32
	}{
		{150 * clocks.MHz, 115200, 81, 24, 115207},
		{48 * clocks.MHz, 115200, 26, 3, 115176},
		{1 * clocks.MHz, 1_000_000, 1, 0, 62500},
		{150 * clocks.MHz, 10, 65535, 0, 143},
	}
	for _, tt := range tests {
		ibrd, fbrd, actual, err := UARTDivisors(clocks.NewGPIn0(tt.peri), tt.baud)
		require.NoError(t, err)
		assert.Equal(t, tt.ibrd, ibrd, "%s %d", tt.peri, tt.baud)
		assert.Equal(t, tt.fbrd, fbrd, "%s %d", tt.peri, tt.baud)
		assert.Equal(t, tt.actual, actual, "%s %d", tt.peri, tt.baud)
	}

	_, _, _, err := UARTDivisors(clocks.NewGPIn0(0), 115200)
	assert.ErrorIs(t, err, ErrClockStopped)
	_, _, _, err = UARTDivisors(clocks.NewGPIn0(clocks.MHz), 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestUARTFollowsClockTree(t *testing.T) {
	tree := bootedTree(t)
	ibrd, _, _, err := UARTDivisors(tree.Manager.Peri(), 115200)
	require.NoError(t, err)
	assert.Equal(t, uint32(81), ibrd)

	require.NoError(t, tree.Configure(clocks.ClkPeri, clocks.SourcePLLUSB, clocks.Divide(1)))
	ibrd, fbrd, _, err := UARTDivisors(tree.Manager.Peri(), 115200)
	require.NoError(t, err)
	assert.Equal(t, uint32(26), ibrd)
	assert.Equal(t, uint32(3), fbrd)
}

func TestADCDivider(t *testing.T) {
	adc := bootedTree(t).Manager.ADC()

	i, f, err := ADCDivider(adc, 500_000)
	require.NoError(t, err)
	assert.Zero(t, i, "500 kS/s is back to back")
	assert.Zero(t, f)

	i, f, err = ADCDivider(adc, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint16(47999), i)
	assert.Zero(t, f)

	i, f, err = ADCDivider(adc, 7000)
	require.NoError(t, err)
	assert.Equal(t, uint16(6856), i)
	assert.Equal(t, uint8(36), f)
	assert.Equal(t, uint32(7000), ADCSampleRate(adc, i, f))

	_, _, err = ADCDivider(adc, 600_000)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, _, err = ADCDivider(adc, 500)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, _, err = ADCDivider(clocks.NewGPIn1(0), 1000)
	assert.ErrorIs(t, err, ErrClockStopped)
}

func TestTickCycles(t *testing.T) {
	tree := bootedTree(t)

	cycles, err := TickCycles(tree.Manager.Ref(), 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), cycles)

	cycles, err = TickCycles(tree.Manager.Sys(), 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint32(150), cycles)

	_, err = TickCycles(tree.LPOSC, 1_000_000)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = TickCycles(tree.Manager.Ref(), 1000)
	assert.ErrorIs(t, err, ErrOutOfRange, "12000 cycles does not fit")
	_, err = TickCycles(tree.Manager.GPOut(0), 1000)
	assert.ErrorIs(t, err, ErrClockStopped)
}

func TestPIOClockDivider(t *testing.T) {
	sys := bootedTree(t).Manager.Sys()

	d, err := PIOClockDivider(sys, 1*clocks.MHz)
	require.NoError(t, err)
	assert.Equal(t, PIODivider{Whole: 150}, d)
	assert.Equal(t, 1*clocks.MHz, d.Rate(150*clocks.MHz))

	d, err = PIOClockDivider(sys, 7*clocks.MHz)
	require.NoError(t, err)
	assert.Equal(t, PIODivider{Whole: 21, Frac: 109}, d)
	assert.InDelta(t, 7_000_000, uint32(d.Rate(150*clocks.MHz)), 2000)

	_, err = PIOClockDivider(sys, 200*clocks.MHz)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = PIOClockDivider(sys, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Zero(t, PIODivider{}.Rate(150*clocks.MHz))
}
