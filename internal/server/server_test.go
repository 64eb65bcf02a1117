package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JakeFAU/quotes-crawler/internal/app"
	"github.com/JakeFAU/quotes-crawler/internal/config"
	"github.com/JakeFAU/quotes-crawler/internal/crawler"
	"github.com/JakeFAU/quotes-crawler/internal/storage/memory"
)

type emptySite struct{}

func (emptySite) Fetch(_ context.Context, url string) (crawler.Response, error) {
	return crawler.Response{URL: url, StatusCode: http.StatusOK, Body: []byte("<p>No quotes found!</p>")}, nil
}

func testConfig() config.Config {
	return config.Config{
		Site:     config.SiteConfig{BaseURL: "http://quotes.test", StartPage: 1, TimeoutSeconds: 1},
		DB:       config.DBConfig{Driver: config.DriverMemory},
		Schedule: config.ScheduleConfig{Cron: "0 0 * * *", Timezone: "UTC"},
	}
}

func newTestApp() *app.App {
	return app.New(testConfig(), nil,
		app.WithFetcher(emptySite{}),
		app.WithStoreOpener(func(context.Context) (app.RunStore, error) { return memory.New(), nil }),
	)
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Schedule.Cron = "every day"
	_, err := New(cfg, newTestApp(), nil, Options{})
	require.Error(t, err)
}

func TestRunNowRecordsRunAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	a := newTestApp()
	s, err := New(testConfig(), a, zaptest.NewLogger(t), Options{RunNow: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := a.LastRun()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	last, _ := a.LastRun()
	require.Equal(t, crawler.RunStatusSucceeded, last.Status)
	require.Equal(t, crawler.StopNoRecords, last.Stats.StopReason)
}

func TestRunStopsCleanlyWithTestLogger(t *testing.T) {
	t.Parallel()

	for i := 0; i < 10; i++ {
		t.Run("cycle", func(t *testing.T) {
			s, err := New(testConfig(), newTestApp(), zaptest.NewLogger(t), Options{RunNow: true})
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			require.NoError(t, s.Run(ctx))
		})
	}
}

func TestHandlerServesLastRun(t *testing.T) {
	t.Parallel()

	a := newTestApp()
	s, err := New(testConfig(), a, nil, Options{})
	require.NoError(t, err)

	_, err = a.RunOnce(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/last", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"stop_reason":"no_records"`)
}
