package qr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPNGRender(t *testing.T) {
	png, err := PNG{}.Render("ID:1|NAME:Asha|EVENT:Quiz|REF:abc")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "expected PNG signature")
}
