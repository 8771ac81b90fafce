package perf

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumen-foundation/lumen/internal/api"
	"github.com/lumen-foundation/lumen/internal/capability"
	"github.com/lumen-foundation/lumen/internal/content"
)

func newNewsRouter(tb testing.TB, rows int) http.Handler {
	tb.Helper()
	catalog, err := content.NewCatalog(content.Source{Backend: content.BackendMemory}, content.Options{})
	if err != nil {
		tb.Fatalf("catalog: %v", err)
	}
	tb.Cleanup(catalog.Close)
	for i := 0; i < rows; i++ {
		title := fmt.Sprintf("Story %d", i)
		if _, err := catalog.News.Create(context.Background(), content.News{Title: &title}); err != nil {
			tb.Fatalf("seed news: %v", err)
		}
	}
	r := chi.NewRouter()
	api.NewHandler(catalog, nil, nil, nil).MountRoutes(r)
	return r
}

func TestCollectionReadLatencyTargets(t *testing.T) {
	router := newNewsRouter(t, 500)
	scenarios := []struct {
		name      string
		path      string
		threshold time.Duration
	}{
		{name: "cached", path: "/api/news?page=1&per_page=50", threshold: 50 * time.Millisecond},
		{name: "refresh", path: "/api/news?refresh=1", threshold: 250 * time.Millisecond},
	}

	for _, scenario := range scenarios {
		samples := make([]time.Duration, 0, 40)
		for i := 0; i < 40; i++ {
			start := time.Now()
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, scenario.path, nil))
			samples = append(samples, time.Since(start))
			if rec.Code != http.StatusOK {
				t.Fatalf("%s: unexpected status %d", scenario.name, rec.Code)
			}
		}
		if p95 := percentile95(samples); p95 > scenario.threshold {
			t.Fatalf("%s latency regression: p95=%s threshold=%s", scenario.name, p95, scenario.threshold)
		}
	}
}

func BenchmarkCollectionList(b *testing.B) {
	router := newNewsRouter(b, 500)
	req := httptest.NewRequest(http.MethodGet, "/api/news", nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func BenchmarkCapabilityPermit(b *testing.B) {
	matrix := capability.Default()
	roles := capability.Roles()
	resources := matrix.Resources()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		matrix.Permit(roles[i%len(roles)], resources[i%len(resources)], capability.ActionEdit)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
