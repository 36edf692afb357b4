package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDispatch(t *testing.T) {
	r := NewCommandRegistry()
	var got []byte
	r.Register(7, "echo", "v=%c", func(data *[]byte) error {
		got = append(got, (*data)[0])
		*data = (*data)[1:]
		return nil
	})
	r.RegisterResponse(8, "echo_reply", "v=%c")

	data := []byte{42, 43}
	require.NoError(t, r.Dispatch(7, &data))
	assert.Equal(t, []byte{42}, got)
	assert.Equal(t, []byte{43}, data)

	assert.True(t, errors.Is(r.Dispatch(8, &data), ErrUnknownCommand), "responses have no handler")
	assert.ErrorIs(t, r.Dispatch(9, &data), ErrUnknownCommand)

	cmd, ok := r.GetCommand(8)
	require.True(t, ok)
	assert.Equal(t, "echo_reply", cmd.Name)
}

func TestDebugForwarding(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(nil)

	debugln("hidden")
	SetDebugEnabled(true)
	defer SetDebugEnabled(false)
	assert.True(t, IsDebugEnabled())
	debugln("shown")
	assert.Equal(t, []string{"shown"}, lines)
}
