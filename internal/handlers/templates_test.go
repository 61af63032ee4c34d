package handlers

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateCacheLoadAndFuncs(t *testing.T) {
	dir := t.TempDir()
	src := `{{euros .Price}} / {{dateFR .When}} / {{dateFR .Unset}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "price.html"), []byte(src), 0o644))

	tc := NewTemplateCache()
	require.NoError(t, tc.Load(dir))

	tmpl := tc.Get("price.html")
	require.NotNil(t, tmpl)
	assert.Nil(t, tc.Get("missing.html"))

	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, map[string]interface{}{
		"Price": 12.5,
		"When":  time.Date(2025, 1, 10, 18, 30, 0, 0, time.UTC),
		"Unset": time.Time{},
	}))
	assert.Equal(t, "12,50 € / 10/01/2025 18:30 / ", buf.String())
}
