package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.ObserveSplit("vertical", 5, 3, 8, 4096)
	r.ObserveSplit("horizontal", 1, 1, 2, 1024)
	r.ObserveRun("success", 120*time.Millisecond)
	r.ObserveRun("invalid_selection", 5*time.Millisecond)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"input pages", testutil.ToFloat64(r.pagesIn), 6},
		{"output pages", testutil.ToFloat64(r.pagesOut), 10},
		{"vertical splits", testutil.ToFloat64(r.pagesSplit.WithLabelValues("vertical")), 3},
		{"horizontal splits", testutil.ToFloat64(r.pagesSplit.WithLabelValues("horizontal")), 1},
		{"output bytes", testutil.ToFloat64(r.outputBytes), 1024},
		{"successful runs", testutil.ToFloat64(r.runs.WithLabelValues("success")), 1},
		{"failed runs", testutil.ToFloat64(r.runs.WithLabelValues("invalid_selection")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if testutil.ToFloat64(r.lastSuccess) <= 0 {
		t.Error("last success timestamp not set")
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveSplit("vertical", 2, 1, 3, 10)
	r.ObserveRun("success", time.Second)

	path := filepath.Join(t.TempDir(), "pdfsplit.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"pdfsplit_input_pages_total 2",
		"pdfsplit_output_pages_total 3",
		`pdfsplit_split_pages_total{direction="vertical"} 1`,
		`pdfsplit_runs_total{result="success"} 1`,
		"pdfsplit_run_duration_seconds_count 1",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}
