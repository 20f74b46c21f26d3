package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetIDPrefersExplicitID(t *testing.T) {
	t.Setenv("MENUBOT_INSTANCE_ID", "bot-2")
	t.Setenv("DYNO", "web.1")
	assert.Equal(t, "bot-2", GetID())

	t.Setenv("MENUBOT_INSTANCE_ID", "")
	assert.Equal(t, "web.1", GetID())

	t.Setenv("DYNO", "")
	assert.NotEmpty(t, GetID())
}
