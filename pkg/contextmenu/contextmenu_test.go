package contextmenu

import (
	"context"
	"errors"
	"testing"

	"github.com/entrhq/stylebot/pkg/styles"
	"github.com/entrhq/stylebot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRenderer struct {
	menus   []Menu
	clears  int
	failErr error
}

func (r *recordingRenderer) RenderMenu(_ context.Context, menu Menu) error {
	r.menus = append(r.menus, menu)
	return r.failErr
}

func (r *recordingRenderer) ClearMenu(context.Context) error {
	r.clears++
	return r.failErr
}

func itemIDs(menu Menu) []string {
	ids := make([]string, len(menu.Items))
	for i, item := range menu.Items {
		ids[i] = item.ID
	}
	return ids
}

func newStyles(t *testing.T) *styles.Service {
	t.Helper()
	svc, err := styles.NewService(nil)
	require.NoError(t, err)
	return svc
}

func TestUpdate_NoStyle(t *testing.T) {
	renderer := &recordingRenderer{}
	menu := New(newStyles(t), renderer)

	menu.Update(context.Background(), types.TabSnapshot{ID: 3, URL: "https://example.com/"})

	require.Len(t, renderer.menus, 1)
	assert.Equal(t, 3, renderer.menus[0].TabID)
	assert.Equal(t, []string{ItemStyleElement, ItemSearchStyles}, itemIDs(renderer.menus[0]))
}

func TestUpdate_ToggleTitleFollowsStyleState(t *testing.T) {
	svc := newStyles(t)
	require.NoError(t, svc.Set("*", "a{}", false))
	require.NoError(t, svc.Set("example.com", "b{}", false))
	renderer := &recordingRenderer{}
	menu := New(svc, renderer)
	tab := types.TabSnapshot{ID: 3, URL: "https://example.com/page"}

	menu.Update(context.Background(), tab)
	require.NoError(t, svc.Disable("example.com"))
	menu.Update(context.Background(), tab)

	require.Len(t, renderer.menus, 2)
	assert.Equal(t, "Disable styling for example.com", renderer.menus[0].Items[2].Title)
	assert.Equal(t, "Enable styling for example.com", renderer.menus[1].Items[2].Title)
}

func TestUpdate_GlobalStyleOnlyHasNoToggle(t *testing.T) {
	svc := newStyles(t)
	require.NoError(t, svc.Set("*", "a{}", false))
	renderer := &recordingRenderer{}

	New(svc, renderer).Update(context.Background(), types.TabSnapshot{ID: 1, URL: "https://example.com/"})

	assert.Len(t, renderer.menus[0].Items, 2)
}

func TestUpdate_RenderFailureIsSwallowed(t *testing.T) {
	renderer := &recordingRenderer{failErr: errors.New("gone")}
	menu := New(newStyles(t), renderer)

	menu.Update(context.Background(), types.TabSnapshot{ID: 1, URL: "https://example.com/"})

	current, ok := menu.Current()
	require.True(t, ok)
	assert.Equal(t, 1, current.TabID)
}

func TestClear(t *testing.T) {
	renderer := &recordingRenderer{}
	menu := New(newStyles(t), renderer)
	menu.Update(context.Background(), types.TabSnapshot{ID: 1, URL: "https://example.com/"})

	menu.Clear(context.Background())

	_, ok := menu.Current()
	assert.False(t, ok)
	assert.Equal(t, 1, renderer.clears)
}
