package integration

import (
	"context"
	"time"
)

// SyncStatus represents the outcome of a synchronization run
type SyncStatus string

const (
	// SyncStatusSuccess indicates every item was synced
	SyncStatusSuccess SyncStatus = "SUCCESS"
	// SyncStatusPartial indicates some items failed
	SyncStatusPartial SyncStatus = "PARTIAL"
	// SyncStatusFailed indicates every item failed
	SyncStatusFailed SyncStatus = "FAILED"
)

// SyncFailure represents a failed sync item
type SyncFailure struct {
	ItemID       string `json:"itemId"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage"`
}

// SyncResult represents the result of a collect-and-continue sync
type SyncResult struct {
	Status       SyncStatus    `json:"status"`
	TotalCount   int           `json:"totalCount"`
	SuccessCount int           `json:"successCount"`
	CreatedCount int           `json:"createdCount"`
	UpdatedCount int           `json:"updatedCount"`
	SkippedCount int           `json:"skippedCount"`
	FailedCount  int           `json:"failedCount"`
	FailedItems  []SyncFailure `json:"failedItems"`
	SyncedAt     time.Time     `json:"syncedAt"`
}

// NewSyncResult creates an empty result
func NewSyncResult() *SyncResult {
	return &SyncResult{FailedItems: make([]SyncFailure, 0)}
}

// Created records an item that was created locally or remotely
func (r *SyncResult) Created() {
	r.TotalCount++
	r.SuccessCount++
	r.CreatedCount++
}

// Updated records an item whose fields were refreshed
func (r *SyncResult) Updated() {
	r.TotalCount++
	r.SuccessCount++
	r.UpdatedCount++
}

// Succeeded records an item synced without a create/update distinction
func (r *SyncResult) Succeeded() {
	r.TotalCount++
	r.SuccessCount++
}

// Skipped records an item that needed no change
func (r *SyncResult) Skipped() {
	r.TotalCount++
	r.SuccessCount++
	r.SkippedCount++
}

// Fail records a failed item with its error
func (r *SyncResult) Fail(itemID, code, message string) {
	r.TotalCount++
	r.FailedCount++
	r.FailedItems = append(r.FailedItems, SyncFailure{ItemID: itemID, ErrorCode: code, ErrorMessage: message})
}

// Finish stamps the result and derives its status
func (r *SyncResult) Finish() *SyncResult {
	r.SyncedAt = time.Now()
	switch {
	case r.FailedCount == 0:
		r.Status = SyncStatusSuccess
	case r.SuccessCount == 0:
		r.Status = SyncStatusFailed
	default:
		r.Status = SyncStatusPartial
	}
	return r
}

// SyncLocker guards a named synchronization so that only one run is active.
// Acquire returns ErrSyncInProgress when the lock is already held.
type SyncLocker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// Lock names for the synchronizations
const (
	SyncLockInventory = "sync:inventory"
	SyncLockOrders    = "sync:orders"
	SyncLockProducts  = "sync:products"
)
