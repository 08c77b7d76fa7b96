package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateLauncher(t *testing.T) {
	l := CreateLauncher(false,
		WithUserAgent("serpagent-test"),
		WithNoSandbox(true),
		WithIncognito(true),
		WithDisableDevShmUsage(false),
		WithDisableBlinkFeatures("AutomationControlled"),
		WithWindowSize(1920, 1080),
		WithBin(""),
	)

	assert.Equal(t, "serpagent-test", l.Get("user-agent"))
	assert.True(t, l.Has("no-sandbox"))
	assert.True(t, l.Has("incognito"))
	assert.False(t, l.Has("disable-dev-shm-usage"))
	assert.Equal(t, "AutomationControlled", l.Get("disable-blink-features"))
	assert.Equal(t, "1920,1080", l.Get("window-size"))
}

func TestWithUserAgent_Empty(t *testing.T) {
	l := CreateLauncher(false, WithUserAgent(""))
	assert.False(t, l.Has("user-agent"))
}
