package prompt

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLine_Ask(t *testing.T) {
	var out bytes.Buffer
	p := NewLine(strings.NewReader(" 2 \nsecond\n"), &out)

	got, err := p.Ask(context.Background(), "Pick one")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
	assert.Equal(t, "Pick one: ", out.String())

	got, err = p.Ask(context.Background(), "Again")
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestLine_EOFIsEmptyAnswer(t *testing.T) {
	p := NewLine(strings.NewReader(""), &bytes.Buffer{})

	got, err := p.Ask(context.Background(), "Pick one")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLine_PasswordKeepsSpaces(t *testing.T) {
	p := NewLine(strings.NewReader(" s3cret \r\n"), &bytes.Buffer{})

	got, err := p.Password(context.Background(), "Password")
	require.NoError(t, err)
	assert.Equal(t, " s3cret ", got)
}

func TestLine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLine(strings.NewReader("1\n"), &bytes.Buffer{}).Ask(ctx, "Pick one")
	assert.ErrorIs(t, err, ErrCancelled)
}
