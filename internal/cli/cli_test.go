package cli_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/stagehand/internal/catalog"
	"github.com/rshade/stagehand/internal/catalog/catalogtest"
	"github.com/rshade/stagehand/internal/cli"
	"github.com/rshade/stagehand/internal/config"
)

func newBackstageServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := catalogtest.NewEntity("Component", "default", "svc")
	svc.Metadata.Annotations = map[string]string{catalog.AnnotationTechDocsRef: "dir:."}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/catalog/entities/by-name/{kind}/{ns}/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") != "svc" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(svc)
	})
	mux.HandleFunc("GET /api/catalog/entities", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]*catalog.Entity{svc})
	})
	mux.HandleFunc("GET /api/techdocs/static/docs/default/component/svc/search/search_index.json",
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"docs":[{"location":"","title":"Home","text":"hi"},{"location":"a/","title":"A","text":""}]}`))
		})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "backend:\n  baseUrl: " + baseURL + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(config.ResetGlobalConfigForTest)

	root := cli.NewRootCmd("1.0.0")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd(t *testing.T) {
	root := cli.NewRootCmd("1.0.0")
	assert.Equal(t, "stagehand", root.Use)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"actions", "collate", "serve"})
}

func TestActionsList(t *testing.T) {
	srv := newBackstageServer(t)
	out, err := run(t, "", "actions", "list", "--config", writeConfig(t, srv.URL), "--examples")
	require.NoError(t, err)
	assert.Contains(t, out, "ACTION")
	assert.Contains(t, out, "catalog:fetch")
	assert.Contains(t, out, "values*")
	assert.Contains(t, out, "action: catalog:fetch")
}

func TestActionsRun(t *testing.T) {
	srv := newBackstageServer(t)
	cfgPath := writeConfig(t, srv.URL)

	t.Run("JSON", func(t *testing.T) {
		input := "commonValues:\n  defaultKind: component\nvalues:\n  - entityRef: svc\n"
		out, err := run(t, input, "actions", "run", "catalog:fetch", "--config", cfgPath)
		require.NoError(t, err)

		var result struct {
			Results []struct {
				Entity catalog.Entity `json:"entity"`
			} `json:"results"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		require.Len(t, result.Results, 1)
		assert.Equal(t, "svc", result.Results[0].Entity.Metadata.Name)
	})

	t.Run("YAML", func(t *testing.T) {
		input := `{"values":[{"entityRef":"component:default/svc"}]}`
		out, err := run(t, input, "actions", "run", "catalog:fetch", "--config", cfgPath, "-o", "yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "results:")
		assert.Contains(t, out, "name: svc")
	})

	t.Run("MissingEntity", func(t *testing.T) {
		input := "values:\n  - entityRef: component:default/svc\n  - entityRef: component:default/gone\n"
		_, err := run(t, input, "actions", "run", "catalog:fetch", "--config", cfgPath)
		require.ErrorIs(t, err, catalog.ErrEntityNotFound)
		assert.Contains(t, err.Error(), "item 1")
	})

	t.Run("InvalidInput", func(t *testing.T) {
		_, err := run(t, "values: nope\n", "actions", "run", "catalog:fetch", "--config", cfgPath)
		require.Error(t, err)
	})

	t.Run("BadOutputFormat", func(t *testing.T) {
		_, err := run(t, "values: []\n", "actions", "run", "catalog:fetch", "--config", cfgPath, "-o", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported output format")
	})
}

func TestCollateTechDocs(t *testing.T) {
	srv := newBackstageServer(t)
	out, err := run(t, "", "collate", "techdocs", "--config", writeConfig(t, srv.URL), "--sink", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "techdocs")
	assert.Contains(t, out, "memory")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"techdocs", "2", "0"}, strings.Fields(lines[1])[:3])
}

func TestCollateTechDocs_BadSink(t *testing.T) {
	srv := newBackstageServer(t)
	_, err := run(t, "", "collate", "techdocs", "--config", writeConfig(t, srv.URL), "--sink", "elastic")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
