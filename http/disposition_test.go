package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		filename string
		want     string
	}{
		{
			name:     "ascii",
			kind:     "attachment",
			filename: "Dune.pdf",
			want:     `attachment; filename="Dune.pdf"; filename*=UTF-8''Dune.pdf`,
		},
		{
			name:     "spaces are percent encoded",
			kind:     "inline",
			filename: "The Hobbit.epub",
			want:     `inline; filename="The Hobbit.epub"; filename*=UTF-8''The%20Hobbit.epub`,
		},
		{
			name:     "accents are stripped in fallback",
			kind:     "attachment",
			filename: "Café.pdf",
			want:     `attachment; filename="Cafe.pdf"; filename*=UTF-8''Caf%C3%A9.pdf`,
		},
		{
			name:     "quotes cannot break the header",
			kind:     "attachment",
			filename: `a"b.pdf`,
			want:     `attachment; filename="a_b.pdf"; filename*=UTF-8''a%22b.pdf`,
		},
		{
			name:     "non latin script",
			kind:     "attachment",
			filename: "книга.pdf",
			want:     `attachment; filename="_____.pdf"; filename*=UTF-8''%D0%BA%D0%BD%D0%B8%D0%B3%D0%B0.pdf`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, contentDisposition(tt.kind, tt.filename))
		})
	}
}

func TestAsciiFilename_Empty(t *testing.T) {
	assert.Equal(t, "download", asciiFilename(""))
}
