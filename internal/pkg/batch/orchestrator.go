package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/edugrade/segma/internal/pkg/segments"
	"github.com/edugrade/segma/internal/pkg/status"
)

// Pipeline runs one file through upload and segmentation
type Pipeline interface {
	Upload(ctx context.Context, path string) (string, error)
	Segment(ctx context.Context, key string) ([]segments.Segment, error)
}

// Item is one file of the batch with its processing state
type Item struct {
	Path     string
	Status   status.Status
	Key      string
	Segments []segments.Segment
	Err      error
}

// Report sums up a finished batch run
type Report struct {
	Succeeded int
	Total     int
}

func (r Report) String() string {
	return fmt.Sprintf("%d/%d", r.Succeeded, r.Total)
}

// Orchestrator processes a list of files strictly one at a time.
// A failed item keeps its error and the run moves to the next one.
type Orchestrator struct {
	pipeline Pipeline

	// size 1 - the remote media service quota is shared, keep the
	// one-item-in-flight constraint explicit
	sem   chan struct{}
	lock  *sync.Mutex
	items []Item
}

// NewOrchestrator creates a batch runner over the given files
func NewOrchestrator(pipeline Pipeline, paths []string) (*Orchestrator, error) {
	if pipeline == nil {
		return nil, errors.New("no pipeline")
	}
	if len(paths) == 0 {
		return nil, errors.New("no files")
	}
	res := &Orchestrator{pipeline: pipeline, sem: make(chan struct{}, 1), lock: &sync.Mutex{}}
	res.items = make([]Item, len(paths))
	for i, p := range paths {
		res.items[i] = Item{Path: p, Status: status.Pending}
	}
	return res, nil
}

// Run processes all items sequentially and returns the final report.
// Per item failures are recorded, not propagated. A canceled context
// stops the run and leaves remaining items pending.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	defer goapp.Estimate("batch method")()
	for i := range o.items {
		if err := ctx.Err(); err != nil {
			return o.report(), err
		}
		o.sem <- struct{}{}
		o.runItem(ctx, i)
		<-o.sem
	}
	res := o.report()
	goapp.Log.Info().Str("report", res.String()).Msg("batch done")
	return res, nil
}

func (o *Orchestrator) runItem(ctx context.Context, i int) {
	item := o.get(i)
	goapp.Log.Info().Str("file", item.Path).Msgf("processing %d/%d", i+1, len(o.items))

	o.update(i, func(it *Item) { it.Status = status.Uploading })
	key, err := o.pipeline.Upload(ctx, item.Path)
	if err != nil {
		goapp.Log.Error().Err(err).Str("file", item.Path).Msg("upload failed")
		o.update(i, func(it *Item) { it.Status = status.Failed; it.Err = err })
		return
	}
	o.update(i, func(it *Item) { it.Status = status.Processing; it.Key = key })

	segs, err := o.pipeline.Segment(ctx, key)
	if err != nil {
		goapp.Log.Error().Err(err).Str("file", item.Path).Msg("segmentation failed")
		o.update(i, func(it *Item) { it.Status = status.Failed; it.Err = err })
		return
	}
	o.update(i, func(it *Item) { it.Status = status.Done; it.Segments = segs })
	goapp.Log.Info().Str("file", item.Path).Msg("done")
}

// Snapshot returns a copy of the current item states
func (o *Orchestrator) Snapshot() []Item {
	o.lock.Lock()
	defer o.lock.Unlock()
	res := make([]Item, len(o.items))
	copy(res, o.items)
	return res
}

func (o *Orchestrator) report() Report {
	o.lock.Lock()
	defer o.lock.Unlock()
	res := Report{Total: len(o.items)}
	for _, it := range o.items {
		if it.Status == status.Done {
			res.Succeeded++
		}
	}
	return res
}

func (o *Orchestrator) get(i int) Item {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.items[i]
}

func (o *Orchestrator) update(i int, f func(*Item)) {
	o.lock.Lock()
	defer o.lock.Unlock()
	f(&o.items[i])
}
