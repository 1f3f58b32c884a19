package media

import (
	"math"
	"testing"
)

func TestBuildExportPlan(t *testing.T) {
	clips := []*Clip{
		{ID: "marked", Filename: "a.mp4", Status: StatusReady, IncludeInExport: true, Duration: 60},
		{ID: "whole", Filename: "b.mp4", Status: StatusReady, IncludeInExport: true, Duration: 30},
		{ID: "excluded", Filename: "c.mp4", Status: StatusReady, IncludeInExport: false, Duration: 10},
		{ID: "failed", Filename: "d.mp4", Status: StatusFailed, IncludeInExport: true, Duration: 10},
		{ID: "processing", Filename: "e.mp4", Status: StatusProcessing, IncludeInExport: true},
	}
	marks := map[string][]*Mark{
		"marked": {
			{ID: "m1", ClipID: "marked", In: 5, Out: 9},
			{ID: "m2", ClipID: "marked", In: 20, Out: 23},
		},
	}

	plan := BuildExportPlan(clips, marks)

	if len(plan.Clips) != 2 {
		t.Fatalf("plan has %d clips, want 2", len(plan.Clips))
	}

	marked := plan.Clips[0]
	if marked.ClipID != "marked" || marked.WholeClip {
		t.Errorf("first entry = %+v, want marked clip with WholeClip=false", marked)
	}
	if len(marked.Ranges) != 2 || marked.Ranges[0].In != 5 || marked.Ranges[1].Out != 23 {
		t.Errorf("marked ranges = %+v, want [{5 9} {20 23}]", marked.Ranges)
	}

	whole := plan.Clips[1]
	if whole.ClipID != "whole" || !whole.WholeClip {
		t.Errorf("second entry = %+v, want whole-clip fallback", whole)
	}
	if len(whole.Ranges) != 1 || whole.Ranges[0].In != 0 || whole.Ranges[0].Out != 30 {
		t.Errorf("whole ranges = %+v, want [{0 30}]", whole.Ranges)
	}

	if plan.RangeCount != 3 {
		t.Errorf("RangeCount = %d, want 3", plan.RangeCount)
	}
	if math.Abs(plan.TotalDuration-37) > 1e-9 {
		t.Errorf("TotalDuration = %v, want 37", plan.TotalDuration)
	}
}

func TestBuildExportPlanEmpty(t *testing.T) {
	plan := BuildExportPlan(nil, nil)
	if plan == nil || plan.Clips == nil {
		t.Fatal("plan and its clip slice must be non-nil")
	}
	if len(plan.Clips) != 0 || plan.RangeCount != 0 || plan.TotalDuration != 0 {
		t.Errorf("empty plan = %+v", plan)
	}
}

func TestBuildExportPlanZeroDurationWholeClip(t *testing.T) {
	// A ready clip whose probe failed has duration 0; the whole-clip range is
	// degenerate but still listed so the editor sees the clip.
	clips := []*Clip{{ID: "x", Status: StatusReady, IncludeInExport: true}}

	plan := BuildExportPlan(clips, nil)
	if len(plan.Clips) != 1 {
		t.Fatalf("plan has %d clips, want 1", len(plan.Clips))
	}
	if !plan.Clips[0].WholeClip || plan.Clips[0].Ranges[0].Out != 0 {
		t.Errorf("zero-duration entry = %+v", plan.Clips[0])
	}
	if plan.RangeCount != 1 {
		t.Errorf("RangeCount = %d, want 1", plan.RangeCount)
	}
	if plan.TotalDuration != 0 {
		t.Errorf("TotalDuration = %v, want 0", plan.TotalDuration)
	}
}
