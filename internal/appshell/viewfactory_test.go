package appshell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleBarFilename(t *testing.T) {
	var f ViewFactory

	u := f.TitleBarFilename()
	assert.Equal(t, titleBarResource, u.String())
	assert.Equal(t, "qrc", u.Scheme)

	// Each call returns an independent value.
	u.Path = "/changed"
	assert.Equal(t, titleBarResource, f.TitleBarFilename().String())
}
