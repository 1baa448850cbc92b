package qrcode_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certusflow/twofactor/pkg/qrcode"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G'}

func TestGenerate(t *testing.T) {
	t.Parallel()

	png, err := qrcode.Generate("otpauth://totp/CertusFlow:alice@example.com?secret=ABC", 256)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngHeader))
}

func TestGenerate_DefaultSize(t *testing.T) {
	t.Parallel()

	png, err := qrcode.Generate("content", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestGenerate_EmptyContent(t *testing.T) {
	t.Parallel()

	_, err := qrcode.Generate("   ", 256)
	assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
}

func TestDataURI(t *testing.T) {
	t.Parallel()

	uri, err := qrcode.DataURI("otpauth://totp/x?secret=ABC", 128)
	require.NoError(t, err)
	assert.True(t, len(uri) > len("data:image/png;base64,"))
	assert.Contains(t, uri, "data:image/png;base64,")
}
