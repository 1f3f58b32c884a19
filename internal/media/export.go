package media

// ExportRange is one contiguous span of a source clip destined for the cut.
type ExportRange struct {
	In  float64 `json:"in"`
	Out float64 `json:"out"`
}

// ClipPlan is the export contribution of a single clip: either its marked
// ranges, or the whole clip when no marks exist.
type ClipPlan struct {
	ClipID    string        `json:"clip_id"`
	Filename  string        `json:"filename"`
	Source    string        `json:"source"`
	Duration  float64       `json:"duration"`
	WholeClip bool          `json:"whole_clip"`
	Ranges    []ExportRange `json:"ranges"`
}

// ExportPlan is the ordered list of ranges an editor would pull into a
// timeline, assembled from the project's included, ready clips. RangeCount
// and TotalDuration summarise the plan so callers can show the cost of an
// export without walking the clips.
type ExportPlan struct {
	Clips         []ClipPlan `json:"clips"`
	RangeCount    int        `json:"range_count"`
	TotalDuration float64    `json:"total_duration"`
}

// BuildExportPlan computes the export plan for clips already sorted into the
// desired timeline order. Clips excluded from export or not yet ready are
// skipped. A clip with marks contributes its marks in creation order; a clip
// without marks contributes one whole-clip range.
func BuildExportPlan(clips []*Clip, marksByClip map[string][]*Mark) *ExportPlan {
	plan := &ExportPlan{Clips: []ClipPlan{}}

	for _, c := range clips {
		if !c.IncludeInExport || c.Status != StatusReady {
			continue
		}

		cp := ClipPlan{
			ClipID:   c.ID,
			Filename: c.Filename,
			Source:   string(c.Source),
			Duration: c.Duration,
		}

		marks := marksByClip[c.ID]
		if len(marks) == 0 {
			cp.WholeClip = true
			cp.Ranges = []ExportRange{{In: 0, Out: c.Duration}}
		} else {
			cp.Ranges = make([]ExportRange, 0, len(marks))
			for _, m := range marks {
				cp.Ranges = append(cp.Ranges, ExportRange{In: m.In, Out: m.Out})
			}
		}

		plan.Clips = append(plan.Clips, cp)
		plan.RangeCount += len(cp.Ranges)
		for _, r := range cp.Ranges {
			// Degenerate ranges (zero-duration whole clips) contribute nothing.
			if r.Out > r.In {
				plan.TotalDuration += r.Out - r.In
			}
		}
	}

	return plan
}
