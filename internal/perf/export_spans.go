package perf

import (
	"sort"
	"time"
)

// ExportSpan is a span rebuilt into a parent/child tree for export.
type ExportSpan struct {
	Name       string                 `json:"name"`
	StartTime  time.Time              `json:"start_time"`
	EndTime    time.Time              `json:"end_time"`
	DurationNS int64                  `json:"duration_ns"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Children   []*ExportSpan          `json:"children,omitempty"`
}

// BuildSpanTree links flat span snapshots into trees via parent span IDs.
// Spans whose parent is unknown become roots. Roots and children are
// ordered by start time.
func BuildSpanTree(spans []SpanSnapshot) []*ExportSpan {
	if len(spans) == 0 {
		return nil
	}

	byID := make(map[string]*ExportSpan, len(spans))
	exported := make([]*ExportSpan, 0, len(spans))

	for _, span := range spans {
		out := &ExportSpan{
			Name:       span.Name,
			StartTime:  span.StartTime,
			EndTime:    span.EndTime,
			Attributes: span.Attributes,
		}
		if !span.StartTime.IsZero() && !span.EndTime.IsZero() && !span.EndTime.Before(span.StartTime) {
			out.DurationNS = span.EndTime.Sub(span.StartTime).Nanoseconds()
		}
		byID[span.SpanID] = out
		exported = append(exported, out)
	}

	roots := make([]*ExportSpan, 0, len(spans))
	for i, span := range spans {
		parent, ok := byID[span.ParentSpanID]
		if span.ParentSpanID == "" || !ok || parent == exported[i] {
			roots = append(roots, exported[i])
			continue
		}
		parent.Children = append(parent.Children, exported[i])
	}

	sortSpansByStart(roots)
	for _, span := range exported {
		sortSpansByStart(span.Children)
	}

	return roots
}

// NormalizeSpanTree rewrites path-like attribute values to be relative to
// baseDir, the same way log export does.
func NormalizeSpanTree(tree []*ExportSpan, baseDir string) {
	for _, span := range tree {
		if span == nil {
			continue
		}
		for key, value := range span.Attributes {
			span.Attributes[key] = normalizeValue(key, value, baseDir)
		}
		NormalizeSpanTree(span.Children, baseDir)
	}
}

func sortSpansByStart(spans []*ExportSpan) {
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].StartTime.Before(spans[j].StartTime)
	})
}
