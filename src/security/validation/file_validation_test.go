package validation

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/homescout/backend/src/logger"
)

var (
	pngHeader  = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
	jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	gifHeader  = []byte("GIF89a")
)

func TestValidateClientContentType(t *testing.T) {
	logger.InitLogger("error")

	for _, ct := range []string{"image/jpeg", "image/png", "IMAGE/PNG", "image/webp", "image/gif", "application/octet-stream"} {
		assert.NoError(t, ValidateClientContentType(ct), ct)
	}
	for _, ct := range []string{"text/html", "application/pdf", "video/mp4", ""} {
		err := ValidateClientContentType(ct)
		assert.ErrorIs(t, err, ErrValidationFailed, ct)
	}
}

func TestValidateImageContent(t *testing.T) {
	logger.InitLogger("error")

	tests := []struct {
		name     string
		content  []byte
		wantType string
		wantExt  string
	}{
		{"png", pngHeader, "image/png", ".png"},
		{"jpeg", jpegHeader, "image/jpeg", ".jpg"},
		{"gif", gifHeader, "image/gif", ".gif"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			contentType, ext, err := ValidateImageContent(bytes.NewReader(tc.content))
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, contentType)
			assert.Equal(t, tc.wantExt, ext)
		})
	}
}

func TestValidateImageContent_RejectsNonImages(t *testing.T) {
	logger.InitLogger("error")

	for _, content := range [][]byte{
		[]byte("#!/bin/sh\nrm -rf /\n"),
		[]byte("<html><body>hi</body></html>"),
		[]byte("%PDF-1.4 something"),
		{},
	} {
		_, _, err := ValidateImageContent(bytes.NewReader(content))
		assert.ErrorIs(t, err, ErrValidationFailed)
	}
}

func TestValidateImageContent_ResetsReader(t *testing.T) {
	logger.InitLogger("error")

	reader := bytes.NewReader(pngHeader)
	_, _, err := ValidateImageContent(reader)
	require.NoError(t, err)

	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, rest, "reader must be rewound for the subsequent store")
}
