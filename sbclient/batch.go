package sbclient

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one request in CreateShortLinks.
type BatchResult struct {
	Request LinkRequest
	Link    *ShortLink
	Err     error
}

// CreateShortLinks sends reqs concurrently, at most limit at a time
// (unbounded when limit <= 0). Each request is signed independently and
// one failure does not cancel the others. Results are in input order.
func (c *Client) CreateShortLinks(ctx context.Context, reqs []LinkRequest, limit int) []BatchResult {
	results := make([]BatchResult, len(reqs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, req := range reqs {
		g.Go(func() error {
			link, err := c.CreateShortLink(ctx, req)
			results[i] = BatchResult{Request: req, Link: link, Err: err}

			return nil
		})
	}

	g.Wait()

	return results
}
