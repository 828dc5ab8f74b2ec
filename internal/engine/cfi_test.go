package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/luminareader/lumina-server/internal/errors"
)

func TestPositionCFI_RoundTrip(t *testing.T) {
	tests := []struct {
		spineIndex int
		charOffset int
		want       string
	}{
		{0, 0, "epubcfi(/6/2!/4/2:0)"},
		{1, 1600, "epubcfi(/6/4!/4/2:1600)"},
		{11, 42, "epubcfi(/6/24!/4/2:42)"},
	}

	for _, tt := range tests {
		cfi := PositionCFI(tt.spineIndex, tt.charOffset)
		assert.Equal(t, tt.want, cfi)

		spine, offset, err := ParseCFI(cfi)
		require.NoError(t, err)
		assert.Equal(t, tt.spineIndex, spine)
		assert.Equal(t, tt.charOffset, offset)
	}
}

func TestSpineCFI_Parses(t *testing.T) {
	cfi := SpineCFI(2)
	assert.Equal(t, "epubcfi(/6/6)", cfi)

	spine, offset, err := ParseCFI(cfi)
	require.NoError(t, err)
	assert.Equal(t, 2, spine)
	assert.Equal(t, 0, offset)
}

func TestParseCFI_Malformed(t *testing.T) {
	cases := []string{
		"",
		"not a cfi",
		"epubcfi(",
		"epubcfi()",
		"epubcfi(/6/3)",        // odd spine step
		"epubcfi(/6/0)",        // step below first element
		"epubcfi(/6/x!/4/2:0)", // non-numeric step
		"epubcfi(/6/4!/4/2:-3)",
	}

	for _, cfi := range cases {
		_, _, err := ParseCFI(cfi)
		assert.ErrorIs(t, err, apperr.ErrInvalidPosition, "cfi %q", cfi)
	}
}
