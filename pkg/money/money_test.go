package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatterWholeUnits(t *testing.T) {
	f := NewFormatter("₽", 0)
	assert.Equal(t, "320₽", f.Format(320))
	assert.Equal(t, "0₽", f.Format(0))
}

func TestFormatterMinorUnits(t *testing.T) {
	f := NewFormatter(" €", 2)
	assert.Equal(t, "10.50€", f.Format(1050))
	assert.Equal(t, "0.07€", f.Format(7))
}

func TestNewFormatterClampsNegativeExponent(t *testing.T) {
	f := NewFormatter("$", -3)
	assert.Equal(t, int32(0), f.MinorUnits)
}

func TestParseMinor(t *testing.T) {
	got, err := ParseMinor("320", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(320), got)

	got, err = ParseMinor("12.5", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(13), got)

	got, err = ParseMinor("10.5", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1050), got)

	_, err = ParseMinor("abc", 0)
	assert.Error(t, err)
}
