package validators

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStringTrimsAndCaps(t *testing.T) {
	assert.Equal(t, "card declined", SanitizeString("  card declined \n", 0))
	assert.Equal(t, "card", SanitizeString("card declined", 4))
	assert.Equal(t, "short", SanitizeString("short", 64))
}

func TestSanitizeStringKeepsRunesWhole(t *testing.T) {
	// "é" is two bytes; a cap landing inside it drops the whole rune.
	out := SanitizeString("carte refusée", 12)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "carte refus", out)

	out = SanitizeString("支付失败", 7)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "支付", out)
}
