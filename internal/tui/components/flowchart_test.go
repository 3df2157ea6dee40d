package components

import (
	"testing"
	"time"

	"github.com/waterwallet/wwdash/internal/model"
)

func flowSample(at time.Time, flow *float64) model.Sample {
	return model.Sample{Record: model.NewRecord(), Timestamp: at, FlowRate: flow}
}

func TestFlowPointsOldestFirstWindowed(t *testing.T) {
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	var samples []model.Sample
	for i := 0; i < 10; i++ {
		v := float64(i)
		samples = append(samples, flowSample(now.Add(-time.Duration(i)*time.Hour), &v))
	}
	samples = append([]model.Sample{flowSample(now.Add(time.Hour), nil)}, samples...)

	pts := FlowPoints(samples, now)
	if len(pts) != FlowWindow {
		t.Fatalf("points = %d, want %d", len(pts), FlowWindow)
	}
	if pts[0].Value != 6 || pts[len(pts)-1].Value != 0 {
		t.Fatalf("order = [%v .. %v], want [6 .. 0]", pts[0].Value, pts[len(pts)-1].Value)
	}
	for i := 1; i < len(pts); i++ {
		if !pts[i].Time.After(pts[i-1].Time) {
			t.Fatalf("points not ascending at %d", i)
		}
	}
}

func TestFlowPointsSynthesizesMissingTimes(t *testing.T) {
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	a, b := 3.0, 4.0
	pts := FlowPoints([]model.Sample{flowSample(time.Time{}, &a), flowSample(time.Time{}, &b)}, now)
	if len(pts) != 2 {
		t.Fatalf("points = %d, want 2", len(pts))
	}
	if !pts[1].Time.Equal(now) || !pts[0].Time.Equal(now.Add(-time.Minute)) {
		t.Fatalf("times = %v, %v", pts[0].Time, pts[1].Time)
	}
}

func TestFlowChartRenders(t *testing.T) {
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	pts := []FlowPoint{{Time: now.Add(-time.Hour), Value: 2}, {Time: now, Value: 6}}
	if out := FlowChart(pts, 40, 8); out == "" {
		t.Fatal("FlowChart rendered nothing")
	}
	if out := FlowChart(nil, 40, 8); out == "" {
		t.Fatal("empty FlowChart should render a placeholder")
	}
}
