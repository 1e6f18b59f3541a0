package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/snacksmith/backend/config"
	"github.com/snacksmith/backend/internal/domain"
	"github.com/snacksmith/backend/internal/infrastructure/nutritionapi"
	"github.com/snacksmith/backend/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with no SNACKSMITH_* variables
func isolate(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, "SNACKSMITH_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	t.Setenv("SNACKSMITH_LOG_LEVEL", "error")
	t.Chdir(t.TempDir())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd(t *testing.T) {
	cmd := newRootCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "mcp", "analyze"}, names)

	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "snacksmith version 1.0.0\n", out)

	out, err = execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "analyze")
	assert.Contains(t, out, "SNACKSMITH_")
}

func TestAnalyzeCmd(t *testing.T) {
	t.Run("almonds and dates", func(t *testing.T) {
		isolate(t)

		out, err := execute(t, "analyze", "-i", "almonds=30", "--ingredient", "Dates=20g")
		require.NoError(t, err)

		var result analyzeOutput
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, []domain.IngredientEntry{{Name: "almonds", AmountG: 30}, {Name: "dates", AmountG: 20}}, result.Ingredients)
		require.NotNil(t, result.Analysis)
		assert.InDelta(t, 50.0, result.Analysis.TotalWeightG, 1e-9)
		assert.Empty(t, result.Explanation)
	})

	t.Run("comma list merges duplicates and explains", func(t *testing.T) {
		isolate(t)

		out, err := execute(t, "analyze", "-i", "almonds=10, almonds=15", "--serving", "5", "--explain")
		require.NoError(t, err)

		var result analyzeOutput
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, []domain.IngredientEntry{{Name: "almonds", AmountG: 25}}, result.Ingredients)
		assert.InDelta(t, 5.0, result.Analysis.ServingSizeG, 1e-9)
		assert.NotEmpty(t, result.Explanation)
	})

	errorCases := []struct {
		name     string
		args     []string
		contains string
	}{
		{"missing flag", []string{"analyze"}, "ingredient"},
		{"unknown ingredient", []string{"analyze", "-i", "almnds=30"}, `did you mean "almonds"`},
		{"malformed spec", []string{"analyze", "-i", "almonds"}, "name=grams"},
		{"zero grams", []string{"analyze", "-i", "almonds=0"}, "amount"},
		{"NaN grams", []string{"analyze", "-i", "almonds=NaN"}, "amount"},
		{"infinite grams", []string{"analyze", "-i", "almonds=Inf,dates=20"}, "amount"},
		{"huge grams", []string{"analyze", "-i", "almonds=1e308"}, "amount"},
		{"NaN serving", []string{"analyze", "-i", "almonds=10", "--serving", "NaN"}, "serving size"},
		{"negative serving", []string{"analyze", "-i", "almonds=10", "--serving", "-1"}, "serving size"},
		{"stray argument", []string{"analyze", "-i", "almonds=10", "extra"}, "unknown command"},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestNewCore(t *testing.T) {
	logger := config.NewTestLogger(io.Discard, slog.LevelError)

	t.Run("embedded catalog and local engine", func(t *testing.T) {
		isolate(t)
		cfg, err := config.Load()
		require.NoError(t, err)

		c, err := newCore(context.Background(), cfg, logger)
		require.NoError(t, err)
		defer c.close()

		assert.Equal(t, 20, c.catalog.Len())
		assert.IsType(t, &usecase.NutritionService{}, c.engine)
	})

	t.Run("remote catalog and engine", func(t *testing.T) {
		isolate(t)
		catalogSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ingredients":[{"name":"Mango","category":"fruits","nutrition":{"calories":60,"sugars_g":14}}]}`))
		}))
		defer catalogSrv.Close()

		t.Setenv("SNACKSMITH_CATALOG_SOURCE", "remote")
		t.Setenv("SNACKSMITH_CATALOG_URL", catalogSrv.URL)
		t.Setenv("SNACKSMITH_NUTRITION_ENGINE", "remote")
		t.Setenv("SNACKSMITH_NUTRITION_BASE_URL", "http://127.0.0.1:1")
		cfg, err := config.Load()
		require.NoError(t, err)

		c, err := newCore(context.Background(), cfg, logger)
		require.NoError(t, err)
		defer c.close()

		assert.Equal(t, 1, c.catalog.Len())
		_, ok := c.catalog.Lookup("mango")
		assert.True(t, ok)
		assert.IsType(t, &nutritionapi.Client{}, c.engine)
	})

	t.Run("unreachable remote catalog fails startup", func(t *testing.T) {
		isolate(t)
		t.Setenv("SNACKSMITH_CATALOG_SOURCE", "remote")
		t.Setenv("SNACKSMITH_CATALOG_URL", "http://127.0.0.1:1/catalog")
		cfg, err := config.Load()
		require.NoError(t, err)

		_, err = newCore(context.Background(), cfg, logger)
		assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
	})
}

func TestNewApp(t *testing.T) {
	logger := config.NewTestLogger(io.Discard, slog.LevelError)

	t.Run("sqlite library survives reopening", func(t *testing.T) {
		isolate(t)
		dbPath := filepath.Join(t.TempDir(), "snacks.db")
		t.Setenv("SNACKSMITH_STORAGE_TYPE", "sqlite")
		t.Setenv("SNACKSMITH_STORAGE_SQLITE_PATH", dbPath)
		cfg, err := config.Load()
		require.NoError(t, err)

		a, err := newApp(context.Background(), cfg, logger)
		require.NoError(t, err)
		assert.False(t, a.aiEnabled)

		saved, err := a.library.Save(context.Background(), domain.Snack{
			Name:        "Date Bar",
			Base:        domain.BaseEnergyBar,
			Ingredients: []domain.IngredientEntry{{Name: "dates", AmountG: 40}},
		})
		require.NoError(t, err)
		require.NoError(t, a.close())

		reopened, err := newApp(context.Background(), cfg, logger)
		require.NoError(t, err)
		defer reopened.close()

		loaded, err := reopened.library.Get(context.Background(), saved.ID)
		require.NoError(t, err)
		assert.Equal(t, "Date Bar", loaded.Name)
	})

	t.Run("AI enabled wires a client", func(t *testing.T) {
		isolate(t)
		t.Setenv("SNACKSMITH_AI_ENABLED", "true")
		t.Setenv("SNACKSMITH_AI_API_KEY", "test-key")
		cfg, err := config.Load()
		require.NoError(t, err)

		a, err := newApp(context.Background(), cfg, logger)
		require.NoError(t, err)
		defer a.close()

		assert.True(t, a.aiEnabled)
		assert.Equal(t, usecase.StatusIdle, a.state.Snapshot().Status)
	})
}
