package obstruct

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formrunner/internal/browser"
	"formrunner/internal/catalog"
)

type fakeController struct {
	browser.Controller
	visible     map[string]int
	clickErr    map[string]error
	removeFails bool
	hideFails   bool
	removed     []string
	hidden      []string
	clicked     []string
}

func (f *fakeController) CountVisible(ctx context.Context, sel string) (int, error) {
	return f.visible[sel], nil
}

func (f *fakeController) Click(ctx context.Context, sel string) error {
	if err := f.clickErr[sel]; err != nil {
		return err
	}
	f.clicked = append(f.clicked, sel)
	return nil
}

func (f *fakeController) RemoveNodes(ctx context.Context, sel string) (int, error) {
	if f.removeFails {
		return 0, errors.New("remove blocked")
	}
	f.removed = append(f.removed, sel)
	return 1, nil
}

func (f *fakeController) HideNodes(ctx context.Context, sel string) (int, error) {
	if f.hideFails {
		return 0, errors.New("hide blocked")
	}
	f.hidden = append(f.hidden, sel)
	return 1, nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	cat.Obstructions = []catalog.Obstruction{
		{Name: "with-close", Selector: ".banner", Close: ".banner-accept"},
		{Name: "no-close", Selector: ".chat"},
	}
	return cat
}

func TestRemoverPrefersCloseClick(t *testing.T) {
	fc := &fakeController{visible: map[string]int{".banner": 1}}
	r := NewRemover(testCatalog(t), zerolog.Nop())

	removals := r.Remove(context.Background(), fc)
	require.Len(t, removals, 1)
	assert.Equal(t, MethodClosed, removals[0].Method)
	assert.Empty(t, fc.removed)
}

func TestRemoverFallsBackToRemoval(t *testing.T) {
	fc := &fakeController{
		visible:  map[string]int{".banner": 1, ".chat": 1},
		clickErr: map[string]error{".banner-accept": errors.New("not visible")},
	}
	r := NewRemover(testCatalog(t), zerolog.Nop())

	removals := r.Remove(context.Background(), fc)
	require.Len(t, removals, 2)
	assert.Equal(t, MethodRemoved, removals[0].Method)
	assert.Equal(t, MethodRemoved, removals[1].Method)
}

func TestRemoverFallsBackToHiding(t *testing.T) {
	fc := &fakeController{
		visible:     map[string]int{".chat": 1},
		removeFails: true,
	}
	r := NewRemover(testCatalog(t), zerolog.Nop())

	removals := r.Remove(context.Background(), fc)
	require.Len(t, removals, 1)
	assert.Equal(t, MethodHidden, removals[0].Method)
}

func TestRemoverNeverFails(t *testing.T) {
	fc := &fakeController{
		visible:     map[string]int{".chat": 1},
		removeFails: true,
		hideFails:   true,
	}
	r := NewRemover(testCatalog(t), zerolog.Nop())

	// All dismissal methods fail: still no error, just a none-method
	// removal entry.
	removals := r.Remove(context.Background(), fc)
	require.Len(t, removals, 1)
	assert.Equal(t, MethodNone, removals[0].Method)
}

func TestRemoverSkipsAbsentSignatures(t *testing.T) {
	fc := &fakeController{visible: map[string]int{}}
	r := NewRemover(testCatalog(t), zerolog.Nop())
	assert.Empty(t, r.Remove(context.Background(), fc))
}
