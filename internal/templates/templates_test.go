package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanwell/scanwell/internal/engine"
	"github.com/scanwell/scanwell/internal/errors"
)

func TestListStartsWithBuiltIns(t *testing.T) {
	m := NewManager(t.TempDir())

	list, err := m.List()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(list), 6)

	assert.Equal(t, "fast", list[0].ID)
	assert.True(t, list[0].BuiltIn)
	assert.Equal(t, engine.PresetFast, list[0].Options.Preset)
}

func TestListMissingDirectoryIsFine(t *testing.T) {
	m := NewManager("/nonexistent/templates")
	list, err := m.List()
	require.NoError(t, err)
	assert.NotEmpty(t, list)
}

func TestSaveAndGetCustomTemplate(t *testing.T) {
	m := NewManager(t.TempDir())

	saved, err := m.Save("Web Audit", "HTTP surface check", engine.Options{
		Preset:           engine.PresetTop1000,
		VersionDetection: true,
		CustomPorts:      "80,443,8080",
	})
	require.NoError(t, err)
	assert.Equal(t, "web_audit", saved.ID)
	assert.False(t, saved.BuiltIn)

	got, err := m.Get("web_audit")
	require.NoError(t, err)
	assert.Equal(t, "Web Audit", got.Name)
	assert.Equal(t, "80,443,8080", got.Options.CustomPorts)
	assert.True(t, got.Options.VersionDetection)
}

func TestSaveRejectsBuiltInShadowing(t *testing.T) {
	m := NewManager(t.TempDir())

	_, err := m.Save("Fast", "shadow", engine.Options{})
	require.Error(t, err)
	assert.Equal(t, errors.CodeConflict, errors.GetCode(err))
}

func TestSaveRejectsEmptyName(t *testing.T) {
	m := NewManager(t.TempDir())

	_, err := m.Save("  ", "", engine.Options{})
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.GetCode(err))
}

func TestGetUnknownTemplate(t *testing.T) {
	m := NewManager(t.TempDir())

	_, err := m.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDelete(t *testing.T) {
	m := NewManager(t.TempDir())

	_, err := m.Save("Short Lived", "", engine.Options{})
	require.NoError(t, err)

	require.NoError(t, m.Delete("short_lived"))
	_, err = m.Get("short_lived")
	assert.True(t, errors.IsNotFound(err))

	// Built-ins are protected; unknown ids report not found.
	assert.Equal(t, errors.CodeValidation, errors.GetCode(m.Delete("fast")))
	assert.True(t, errors.IsNotFound(m.Delete("never_existed")))
}
