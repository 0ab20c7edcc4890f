package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHead(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		want MediaType
		mime string
	}{
		{
			name: "jpeg",
			head: []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'},
			want: TypeJPEG,
			mime: "image/jpeg",
		},
		{
			name: "png",
			head: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0},
			want: TypePNG,
			mime: "image/png",
		},
		{
			name: "webp",
			head: []byte{'R', 'I', 'F', 'F', 0x24, 0x00, 0x00, 0x00, 'W', 'E', 'B', 'P'},
			want: TypeWEBP,
			mime: "image/webp",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectHead(tc.head)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Type)
			assert.Equal(t, tc.mime, got.MIME)
		})
	}
}

func TestDetectHeadRejectsUnknown(t *testing.T) {
	for _, head := range [][]byte{
		nil,
		{},
		[]byte("GIF89a"),
		[]byte("<svg xmlns="),
		{0xff, 0xd8},                               // truncated jpeg
		{'R', 'I', 'F', 'F', 0, 0, 0, 0, 'W', 'A'}, // riff but not webp
	} {
		_, err := DetectHead(head)
		assert.ErrorIs(t, err, ErrUnknownType)
	}
}
