package opener

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageURL = "https://github.com/acme/porthole/releases/latest"

func TestSystem_Opens(t *testing.T) {
	var opened, copied []string
	s := &System{
		open: func(u string) error { opened = append(opened, u); return nil },
		copy: func(u string) error { copied = append(copied, u); return nil },
	}
	require.NoError(t, s.Open(pageURL))
	assert.Equal(t, []string{pageURL}, opened)
	assert.Empty(t, copied)
}

func TestSystem_FallsBackToClipboard(t *testing.T) {
	var copied, notified []string
	s := &System{
		open:   func(string) error { return errors.New("xdg-open: not found") },
		copy:   func(u string) error { copied = append(copied, u); return nil },
		Copied: func(u string) { notified = append(notified, u) },
	}
	require.NoError(t, s.Open(pageURL))
	assert.Equal(t, []string{pageURL}, copied)
	assert.Equal(t, []string{pageURL}, notified)
}

func TestSystem_BothFail(t *testing.T) {
	clipErr := errors.New("no clipboard utilities")
	s := &System{
		open: func(string) error { return errors.New("no browser") },
		copy: func(string) error { return clipErr },
	}
	err := s.Open(pageURL)
	assert.ErrorIs(t, err, clipErr)
	assert.Contains(t, err.Error(), "no browser")
}

func TestNewSystem(t *testing.T) {
	s := NewSystem()
	assert.NotNil(t, s.open)
	assert.NotNil(t, s.copy)
}
