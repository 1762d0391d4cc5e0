package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ksef-desk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

const editorConfig = `active_profile = "main"

[[profiles]]
name = "main"
nip = "5265877635"
environment = "test"
grant = "client_credentials"
`

func newTestEditor(t *testing.T) (*ConfigEditor, *memory.ConfigStore, *mockOrchestrator) {
	t.Helper()
	store := memory.NewConfigStore()
	require.NoError(t, store.WriteRaw([]byte(editorConfig)))
	orch := &mockOrchestrator{profile: domain.Profile{
		Name: "main", NIP: "5265877635", Environment: "test", Grant: domain.GrantClientCredentials,
	}}
	return NewConfigEditor(store, store, NewSettingsService(store, store), orch), store, orch
}

func TestConfigEditor_Read(t *testing.T) {
	editor, _, _ := newTestEditor(t)

	doc, err := editor.Read()
	require.NoError(t, err)
	assert.Equal(t, editorConfig, doc.Content)
	assert.Equal(t, ":memory:", doc.Path)
}

func TestConfigEditor_WriteUnchangedProfileDoesNotSwitch(t *testing.T) {
	editor, _, orch := newTestEditor(t)

	err := editor.Write(context.Background(), domain.ConfigDocument{Content: editorConfig + "\n[server]\nport = 9000\n"})
	require.NoError(t, err)
	assert.Empty(t, orch.switched)
}

func TestConfigEditor_WriteSwitchesToNewActiveProfile(t *testing.T) {
	editor, _, orch := newTestEditor(t)
	content := editorConfig + `
[[profiles]]
name = "branch"
nip = "1111111111"
environment = "demo"
`
	content = "active_profile = \"branch\"\n" + content[len("active_profile = \"main\"\n"):]

	require.NoError(t, editor.Write(context.Background(), domain.ConfigDocument{Content: content}))
	assert.Equal(t, []string{"branch"}, orch.switched)
}

func TestConfigEditor_WriteRollsBackWhenSwitchFails(t *testing.T) {
	editor, store, orch := newTestEditor(t)
	orch.switchErr = domain.ErrAuthRequired
	content := `active_profile = "branch"

[[profiles]]
name = "branch"
nip = "1111111111"
environment = "demo"
`

	err := editor.Write(context.Background(), domain.ConfigDocument{Content: content})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	raw, err := store.Raw()
	require.NoError(t, err)
	assert.Equal(t, editorConfig, string(raw))
	assert.Equal(t, "main", store.GetString("active_profile"))
}

func TestConfigEditor_WriteRejectsInvalidTOML(t *testing.T) {
	editor, store, orch := newTestEditor(t)

	err := editor.Write(context.Background(), domain.ConfigDocument{Content: "[[profiles"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, orch.switched)

	raw, err := store.Raw()
	require.NoError(t, err)
	assert.Equal(t, editorConfig, string(raw))
}

func TestConfigEditor_WriteRejectsInvalidProfile(t *testing.T) {
	editor, store, _ := newTestEditor(t)
	content := `[[profiles]]
name = "bad"
nip = "12"
environment = "test"
`
	err := editor.Write(context.Background(), domain.ConfigDocument{Content: content})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	raw, _ := store.Raw()
	assert.Equal(t, editorConfig, string(raw))
}
