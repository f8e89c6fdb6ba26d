package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEUCKRRoundTrip(t *testing.T) {
	for _, s := range []string{"prontera.bmp", "프론테라", `유저인터페이스\지붕.bmp`} {
		t.Run(s, func(t *testing.T) {
			assert.Equal(t, s, EUCKRToUTF8(UTF8ToEUCKR(s)))
		})
	}
}

func TestUTF8ToEUCKR(t *testing.T) {
	assert.Equal(t, []byte("abc"), UTF8ToEUCKR("abc"))
	assert.Len(t, UTF8ToEUCKR("지붕"), 4, "two bytes per syllable")
}

func TestFixedString(t *testing.T) {
	field := UTF8ToFixedString("날개", 40)
	assert.Len(t, field, 40)
	assert.Equal(t, byte(0), field[4])
	assert.Equal(t, "날개", FixedStringToUTF8(field))

	assert.Equal(t, "", FixedStringToUTF8(make([]byte, 8)))
	assert.Equal(t, "full", FixedStringToUTF8([]byte("full")), "no terminator")
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "data/texture/a.bmp", SlashPath(`data\texture\a.bmp`))
	assert.Equal(t, "data/texture/wall.bmp", NormalizeGRFPath(`Data\Texture\WALL.bmp`))
}
