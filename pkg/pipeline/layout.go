package pipeline

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/notes"
	"github.com/matzehuels/scribetree/pkg/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Layout operations reported to observability hooks.
const (
	OpCompute = "compute"
	OpArrange = "arrange"
)

// =============================================================================
// Layout Generation
// =============================================================================

// ComputeLayout lays out a note, reporting the duration to the pipeline hooks.
func ComputeLayout(ctx context.Context, n *notes.LectureNote, opts layout.Options) (layout.Result, error) {
	start := time.Now()
	res, err := layout.Compute(n, opts)
	observability.Pipeline().OnLayoutComplete(ctx, OpCompute, len(res.Nodes), time.Since(start), err)
	return res, err
}

// ArrangeLayout re-lays a computed layout out in layered form.
func ArrangeLayout(ctx context.Context, res layout.Result, opts layout.ArrangeOptions) (layout.Result, error) {
	start := time.Now()
	nodes, edges, err := layout.Arrange(ctx, res.Nodes, res.Edges, opts)
	observability.Pipeline().OnLayoutComplete(ctx, OpArrange, len(res.Nodes), time.Since(start), err)
	if err != nil {
		return layout.Result{}, err
	}
	return layout.Result{Nodes: nodes, Edges: edges}, nil
}

func (r *Runner) layout(ctx context.Context, n *notes.LectureNote, opts layout.Options) (layout.Result, error) {
	return ComputeLayout(ctx, n, opts)
}
