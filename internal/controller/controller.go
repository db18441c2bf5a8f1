// Package controller exposes the cache operations consumed by the
// application layer: typed reads, creates-or-edits, relationship mutations,
// and their bulk forms with partial-failure reporting.
package controller

import (
	"sync"
)

// BulkResult reports the per-item outcome of a bulk operation. Every input
// id lands in exactly one of the two lists.
type BulkResult struct {
	Success []string `json:"success"`
	Failed  []string `json:"failed"`
}

func newBulkResult() *BulkResult {
	return &BulkResult{Success: []string{}, Failed: []string{}}
}

// runBulk fans out over every id and buckets each id by outcome. One item's
// failure never affects its siblings. The per-item writes run one at a
// time: items in a batch usually touch a shared record (the acting user, a
// common author), and concurrent transactions on the same record abort each
// other until the retry budget drains, turning valid items into spurious
// failures.
func runBulk(ids []string, fn func(id string) error) *BulkResult {
	res := newBulkResult()

	var wg sync.WaitGroup
	var resMu sync.Mutex
	var applyMu sync.Mutex
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()

			applyMu.Lock()
			err := fn(id)
			applyMu.Unlock()

			resMu.Lock()
			defer resMu.Unlock()
			if err != nil {
				res.Failed = append(res.Failed, id)
			} else {
				res.Success = append(res.Success, id)
			}
		}()
	}
	wg.Wait()
	return res
}
