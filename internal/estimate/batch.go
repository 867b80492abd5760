package estimate

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/ancestry.report/internal/segments"
)

// PairError attributes a per-pair failure to its pair. One pair's failure
// never aborts the batch; the computation is deterministic, so retrying an
// identical input would fail identically.
type PairError struct {
	Pair segments.PairKey
	Err  error
}

func (e PairError) Error() string {
	return fmt.Sprintf("pair %s: %v", e.Pair, e.Err)
}

// Batch is the outcome of estimating every pair in one run. Results are
// sorted by pair key so reruns over identical input are byte-identical.
type Batch struct {
	RunID   string
	Results []*Result
	Errors  []PairError
}

// BatchOptions configures a batch run.
type BatchOptions struct {
	Options
	// Workers caps estimation concurrency; <= 0 means GOMAXPROCS.
	Workers int
}

// RunBatch estimates every pair concurrently. Pairs are independent and the
// model is a pure function, so workers share nothing but the read-only
// model; no coordination is needed beyond the hand-off channels.
func RunBatch(m *Model, stats map[segments.PairKey]*segments.SharedStatistic, opts BatchOptions) *Batch {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(stats) && len(stats) > 0 {
		workers = len(stats)
	}

	type outcome struct {
		res *Result
		err *PairError
	}

	jobs := make(chan *segments.SharedStatistic)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for st := range jobs {
				res, err := EstimatePair(m, st, opts.Options)
				if err != nil {
					outcomes <- outcome{err: &PairError{Pair: st.Pair, Err: err}}
					continue
				}
				outcomes <- outcome{res: res}
			}
		}()
	}

	go func() {
		for _, st := range stats {
			jobs <- st
		}
		close(jobs)
		wg.Wait()
		close(outcomes)
	}()

	batch := &Batch{RunID: uuid.NewString()}
	for o := range outcomes {
		if o.err != nil {
			batch.Errors = append(batch.Errors, *o.err)
			continue
		}
		batch.Results = append(batch.Results, o.res)
	}

	sort.Slice(batch.Results, func(i, j int) bool { return batch.Results[i].Pair < batch.Results[j].Pair })
	sort.Slice(batch.Errors, func(i, j int) bool { return batch.Errors[i].Pair < batch.Errors[j].Pair })
	return batch
}
