package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "devpost_com_hackathons_a_1", SafeName("https://devpost.com/hackathons?a=1", 0))
	assert.Equal(t, "devpost_co", SafeName("https://devpost.com/hackathons", 10))
	assert.Equal(t, "", SafeName("", 10))
}

func TestUrlQuery(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ai+hackathon+after%3AOctober+18", UrlQuery("ai hackathon after:October 18"))
	assert.Equal(t, "", Str(nil))
	assert.Equal(t, "3", Str(3))
}
