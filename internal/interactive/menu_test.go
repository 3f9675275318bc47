package interactive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuChoices(t *testing.T) {
	called := ""
	options := []MenuOption{
		{Name: "Run", Description: "Compare all folders", Action: func() error { called = "run"; return nil }},
		{Name: "Show Config", Description: "Print configuration", Action: func() error { return errors.New("boom") }},
	}

	choices, optionMap := menuChoices(options)
	require.Equal(t, []string{
		"Run - Compare all folders",
		"Show Config - Print configuration",
		"Exit",
	}, choices)

	require.NoError(t, dispatch(choices[0], optionMap))
	assert.Equal(t, "run", called)

	require.EqualError(t, dispatch(choices[1], optionMap), "boom")
	require.ErrorIs(t, dispatch("Exit", optionMap), ErrExit)
	require.ErrorIs(t, dispatch("unknown", optionMap), ErrInvalidSelection)
}

func TestKeepOrder(t *testing.T) {
	all := []string{"a-hello", "b-routing", "c-static"}

	assert.Equal(t, []string{"a-hello", "c-static"}, keepOrder(all, []string{"c-static", "a-hello"}))
	assert.Empty(t, keepOrder(all, nil))
}

func TestSelectFolders_Empty(t *testing.T) {
	_, err := SelectFolders(nil)
	require.ErrorIs(t, err, ErrNothingSelected)
}
