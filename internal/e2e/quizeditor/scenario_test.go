package quizeditor

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a live editor. Set SWOT_E2E_BASE_URL to the app root, and optionally
// SWOT_E2E_CHROME_URL to a DevTools websocket to reuse a running browser.
func newLivePage(t *testing.T) (*Page, context.Context) {
	t.Helper()
	baseURL := os.Getenv("SWOT_E2E_BASE_URL")
	if baseURL == "" {
		t.Skip("SWOT_E2E_BASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	driver, closeDriver, err := NewChromeDriver(ctx, os.Getenv("SWOT_E2E_CHROME_URL"))
	require.NoError(t, err)
	t.Cleanup(closeDriver)
	return NewPage(driver, baseURL), ctx
}

func TestScenarioCreateFillAndSave(t *testing.T) {
	page, ctx := newLivePage(t)

	require.NoError(t, page.Create(ctx))
	require.NoError(t, page.SetQuizName(ctx, "Capitals"))
	require.NoError(t, page.AddQuestion(ctx))
	require.NoError(t, page.AddQuestion(ctx))

	pairs := [][2]string{{"Capital of France?", "Paris"}, {"Capital of Japan?", "Tokyo"}}
	for i, pair := range pairs {
		q, err := page.GetQuestion(i + 1)
		require.NoError(t, err)
		require.NoError(t, page.Type(ctx, q, pair[0]))
		a, err := page.GetAnswer(i + 1)
		require.NoError(t, err)
		require.NoError(t, page.Type(ctx, a, pair[1]))
	}

	require.NoError(t, page.Save(ctx))
	status, err := page.SaveStatus(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, status)
	saveErr, err := page.SaveError(ctx)
	require.NoError(t, err)
	assert.Empty(t, saveErr)
}

func TestScenarioAddQuestionAddsExactlyOne(t *testing.T) {
	page, ctx := newLivePage(t)
	require.NoError(t, page.Create(ctx))

	before, err := page.GetNumQuestions(ctx)
	require.NoError(t, err)
	for i := 1; i <= 2; i++ {
		require.NoError(t, page.AddQuestion(ctx))
		n, err := page.GetNumQuestions(ctx)
		require.NoError(t, err)
		assert.Equal(t, before+i, n)
	}
}
