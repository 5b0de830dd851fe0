package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "Hello there", StripMarkup("<p>Hello <b>there</b></p>"))
	assert.Equal(t, "plain text", StripMarkup("  plain text  "))
	assert.Equal(t, "line one\nline two", StripMarkup("<p>line one<br>line two</p>"))
	assert.Equal(t, "first\nsecond", StripMarkup("<p>first</p><p>second</p>"))
	assert.Equal(t, "Tom & Jerry", StripMarkup("<p>Tom &amp; Jerry</p>"))
	assert.Equal(t, "", StripMarkup("<p></p>"))
}
