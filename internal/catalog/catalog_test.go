package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, c.Version, 1)
	assert.GreaterOrEqual(t, len(c.Obstructions), 15, "overlay signature catalog must stay useful")
	assert.NotEmpty(t, c.Captcha.Markers)
	assert.NotEmpty(t, c.SubmitSelectors)
	assert.NotEmpty(t, c.ContactLinks)

	// First/last name entries must precede full-name, otherwise the bare
	// "name" keyword swallows them.
	pos := map[string]int{}
	for i, f := range c.Fields {
		pos[f.Kind] = i
	}
	assert.Less(t, pos["first-name"], pos["full-name"])
	assert.Less(t, pos["last-name"], pos["full-name"])
	assert.Equal(t, 0, pos["email"], "email stays first to win ambiguous names")
}

func TestDefaultFor(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.NotEmpty(t, c.DefaultFor("email"))
	assert.NotEmpty(t, c.DefaultFor("message"))
	assert.Empty(t, c.DefaultFor("no-such-kind"))
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	doc := `version: 2
fields:
  - kind: email
    keywords: [mail]
obstructions:
  - name: test
    selector: ".overlay"
captcha:
  markers: ["iframe[src*='recaptcha']"]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Version)
	assert.Len(t, c.Fields, 1)
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(c.Fields), 10)
}

func TestValidateRejectsBrokenTables(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"missing version", "fields:\n  - kind: email\n    keywords: [mail]\ncaptcha:\n  markers: [a]\n"},
		{"empty fields", "version: 1\ncaptcha:\n  markers: [a]\n"},
		{"kindless entry", "version: 1\nfields:\n  - keywords: [mail]\ncaptcha:\n  markers: [a]\n"},
		{"keywordless entry", "version: 1\nfields:\n  - kind: email\ncaptcha:\n  markers: [a]\n"},
		{"no captcha markers", "version: 1\nfields:\n  - kind: email\n    keywords: [mail]\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}
