package options

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/entrhq/stylebot/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore fails every Save.
type failingStore struct {
	*config.MemoryStore
}

func (failingStore) Save() error { return errors.New("disk full") }

type recordingOpener struct {
	urls []string
	err  error
}

func (r *recordingOpener) OpenPage(_ context.Context, url string) error {
	r.urls = append(r.urls, url)
	return r.err
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(config.NewMemoryStore(), nil, "")
	require.NoError(t, err)
	return svc
}

func TestNewService_Defaults(t *testing.T) {
	svc := newTestService(t)

	assert.Equal(t, Defaults(), svc.Snapshot())
	assert.True(t, svc.ContextMenuEnabled())
}

func TestNewService_LoadsStoredValues(t *testing.T) {
	store := config.NewMemoryStore()
	store.SetSection(SectionID, map[string]interface{}{
		KeyContextMenu: false,
		KeyIndentation: float64(2),
		"futureOption":  "ignored",
	})

	svc, err := NewService(store, nil, "")
	require.NoError(t, err)

	assert.False(t, svc.ContextMenuEnabled())
	value, err := svc.Get(KeyIndentation)
	require.NoError(t, err)
	assert.Equal(t, 2, value)
	assert.Equal(t, ModeBasic, svc.Snapshot().Mode)
}

func TestNewService_RejectsInvalidStoredValues(t *testing.T) {
	store := config.NewMemoryStore()
	store.SetSection(SectionID, map[string]interface{}{KeyMode: "expert"})

	_, err := NewService(store, nil, "")
	assert.Error(t, err)
}

func TestService_GetContextMenu(t *testing.T) {
	svc := newTestService(t)

	value, err := svc.Get(KeyContextMenu)
	require.NoError(t, err)
	assert.Equal(t, true, value)
}

func TestService_GetUnknown(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownOption)
}

func TestService_Set(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   interface{}
		want    interface{}
		wantErr bool
	}{
		{name: "bool", key: KeyContextMenu, value: false, want: false},
		{name: "mode", key: KeyMode, value: ModeAdvanced, want: ModeAdvanced},
		{name: "json number", key: KeyShortcutKey, value: float64(66), want: 66},
		{name: "int", key: KeyIndentation, value: 2, want: 2},
		{name: "wrong type", key: KeyContextMenu, value: "yes", wantErr: true},
		{name: "bad mode", key: KeyMode, value: "expert", wantErr: true},
		{name: "fractional", key: KeyIndentation, value: 2.5, wantErr: true},
		{name: "out of range", key: KeyIndentation, value: 20, wantErr: true},
		{name: "unknown key", key: "nope", value: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			before := svc.Snapshot()

			err := svc.Set(tt.key, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, before, svc.Snapshot(), "failed Set must not change the bag")
				return
			}
			require.NoError(t, err)
			got, err := svc.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_SetPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.json")
	store, err := config.NewFileStore(path)
	require.NoError(t, err)

	svc, err := NewService(store, nil, "")
	require.NoError(t, err)
	require.NoError(t, svc.Set(KeyContextMenu, false))

	reloaded, err := config.NewFileStore(path)
	require.NoError(t, err)
	svc2, err := NewService(reloaded, nil, "")
	require.NoError(t, err)
	assert.False(t, svc2.ContextMenuEnabled())
}

func TestService_SetRevertsOnSaveFailure(t *testing.T) {
	svc, err := NewService(failingStore{config.NewMemoryStore()}, nil, "")
	require.NoError(t, err)

	err = svc.Set(KeyContextMenu, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, svc.ContextMenuEnabled())
}

func TestService_OnChange(t *testing.T) {
	svc := newTestService(t)

	var gotKey string
	var gotValue interface{}
	svc.OnChange(func(key string, value interface{}) {
		gotKey, gotValue = key, value
	})

	require.NoError(t, svc.Set(KeyContextMenu, false))
	assert.Equal(t, KeyContextMenu, gotKey)
	assert.Equal(t, false, gotValue)
}

func TestService_All(t *testing.T) {
	svc := newTestService(t)

	all := svc.All()
	assert.Len(t, all, len(Keys()))
	assert.Equal(t, true, all[KeyContextMenu])
	assert.Equal(t, ModeBasic, all[KeyMode])
}

func TestService_ViewOptionsPage(t *testing.T) {
	opener := &recordingOpener{}
	svc, err := NewService(config.NewMemoryStore(), opener, "chrome-extension://x/options.html")
	require.NoError(t, err)

	require.NoError(t, svc.ViewOptionsPage(context.Background()))
	assert.Equal(t, []string{"chrome-extension://x/options.html"}, opener.urls)

	opener.err = errors.New("no window")
	assert.Error(t, svc.ViewOptionsPage(context.Background()))

	noOpener := newTestService(t)
	assert.Error(t, noOpener.ViewOptionsPage(context.Background()))
}
