package analysis

import (
	"context"
	"math/bits"

	"golang.org/x/sync/errgroup"

	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
)

// Distiller reduces the per-chunk feature lists to a single list by a
// tournament of pairwise merges.  Round r merges survivors (2i, 2i+1); an
// odd tail passes through untouched.  Rounds are strictly sequential, merges
// within a round run concurrently under the shared bound, and N inputs take
// exactly ⌈log₂N⌉ rounds (zero for N ≤ 1).
type Distiller struct {
	llm    LanguageModel
	limit  int
	logger logging.Logger
}

func NewDistiller(llm LanguageModel, limit int, logger logging.Logger) *Distiller {
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Distiller{llm: llm, limit: limit, logger: logger}
}

// Rounds returns the number of merge rounds a tournament over n inputs takes.
func Rounds(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// Distill runs the tournament and returns the final raw feature list.
func (d *Distiller) Distill(ctx context.Context, extracts []string) string {
	current := extracts
	round := 0
	for len(current) > 1 {
		round++
		next := make([]string, (len(current)+1)/2)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.limit)
		for i := 0; 2*i+1 < len(current); i++ {
			i := i
			a, b := current[2*i], current[2*i+1]
			g.Go(func() error {
				next[i] = d.merge(gctx, round, i, a, b)
				return nil
			})
		}
		if len(current)%2 == 1 {
			next[len(next)-1] = current[len(current)-1]
		}
		_ = g.Wait()
		current = next
	}
	if len(current) == 0 {
		return ""
	}
	return current[0]
}

// merge combines two feature lists.  Trivial inputs are short-circuited
// without a model call; a failed merge degrades to concatenation so no
// extracted feature is lost to a transient backend error.
func (d *Distiller) merge(ctx context.Context, round, pair int, a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	out, err := d.llm.Complete(ctx, mergeMessages(a, b))
	if err != nil {
		d.logger.Warn("merge failed, falling back to concatenation",
			logging.Int("round", round), logging.Int("pair", pair), logging.Err(err))
		return a + "\n" + b
	}
	return out
}
