package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessthatsong/internal/domain/track"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// NewChainFromConfig builds a chain from filter settings keyed by filter name.
// Filters are added in alphabetical order so results are reproducible.
func NewChainFromConfig(settings map[string]map[string]any) (*Chain, error) {
	chain := NewChain()
	for _, name := range Names() {
		cfg, ok := settings[name]
		if !ok {
			continue
		}
		f := registry[name]()
		if err := f.ValidateConfig(cfg); err != nil {
			return nil, errors.Wrapf(err, "invalid settings for filter %s", name)
		}
		chain.Add(f)
		zlog.Info().Msgf("registered filter: name=%s", name)
	}
	for name := range settings {
		if _, ok := registry[name]; !ok {
			return nil, errors.Newf("unknown filter: %s", name)
		}
	}
	return chain, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the track.
// Filters are only applied if they declare they apply to the track's source.
func (c *Chain) Execute(ctx context.Context, t track.Track, accepted []track.Track) Result {
	for _, f := range c.filters {
		if !f.AppliesTo(t.Source) {
			continue
		}

		result := f.Check(ctx, t, accepted)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Apply filters a candidate list, keeping the input order.
// It returns the accepted tracks and rejection counts per code.
func (c *Chain) Apply(ctx context.Context, candidates []track.Track) ([]track.Track, map[string]int) {
	accepted := make([]track.Track, 0, len(candidates))
	rejected := make(map[string]int)
	for _, t := range candidates {
		result := c.Execute(ctx, t, accepted)
		if !result.Accepted {
			rejected[result.Code]++
			zlog.Debug().Msgf("filter: rejected track: id=%s title=%s code=%s", t.ID, t.Title, result.Code)
			continue
		}
		accepted = append(accepted, t)
	}
	return accepted, rejected
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
