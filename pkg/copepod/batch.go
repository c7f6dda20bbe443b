package copepod

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oreanmos/copepod-go/internal/constants"
)

// BatchOperationType is the kind of record operation in a batch.
type BatchOperationType string

const (
	BatchCreate BatchOperationType = "create"
	BatchUpdate BatchOperationType = "update"
	BatchDelete BatchOperationType = "delete"
	BatchGet    BatchOperationType = "get"
)

// BatchOperation represents a single record operation in a batch.
type BatchOperation struct {
	ID         string
	Type       BatchOperationType
	Collection string
	// RecordID is required for update, delete and get.
	RecordID string
	// Data is the record body for create and update.
	Data interface{}
	// Callback is invoked from the worker goroutine once the operation finishes.
	Callback func(result *BatchResult)
}

// BatchResult represents the result of a batch operation.
type BatchResult struct {
	ID       string
	Success  bool
	Record   Record
	Error    error
	Duration time.Duration
}

// BatchExecutor runs record operations against one app with bounded concurrency.
// A failed operation does not stop the others.
type BatchExecutor struct {
	records     RecordsClient
	orgID       string
	appID       string
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(records RecordsClient, orgID, appID string, concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrencyLimit
	}

	return &BatchExecutor{
		records:     records,
		orgID:       orgID,
		appID:       appID,
		concurrency: concurrency,
		timeout:     constants.DefaultBatchTimeout,
	}
}

// SetTimeout sets the per-operation timeout.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs a batch of operations. Results are in the order of operations.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) ([]BatchResult, error) {
	results := make([]BatchResult, len(operations))

	var group errgroup.Group

	group.SetLimit(b.concurrency)

	for index, operation := range operations {
		group.Go(func() error {
			opCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			start := time.Now()
			result := b.executeOperation(opCtx, operation)
			result.Duration = time.Since(start)
			results[index] = *result

			if operation.Callback != nil {
				operation.Callback(result)
			}

			return nil
		})
	}

	_ = group.Wait()

	return results, nil
}

func (b *BatchExecutor) executeOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	result := &BatchResult{ID: operation.ID}

	var (
		record Record
		err    error
	)

	switch operation.Type {
	case BatchCreate:
		if operation.Data == nil {
			err = fmt.Errorf("%w create", ErrInvalidBatchData)

			break
		}

		record, err = b.records.Create(ctx, b.orgID, b.appID, operation.Collection, operation.Data)
	case BatchUpdate:
		if operation.Data == nil || operation.RecordID == "" {
			err = fmt.Errorf("%w update", ErrInvalidBatchData)

			break
		}

		record, err = b.records.Update(ctx, b.orgID, b.appID, operation.Collection, operation.RecordID, operation.Data)
	case BatchDelete:
		if operation.RecordID == "" {
			err = fmt.Errorf("%w delete", ErrInvalidBatchData)

			break
		}

		err = b.records.Delete(ctx, b.orgID, b.appID, operation.Collection, operation.RecordID)
	case BatchGet:
		if operation.RecordID == "" {
			err = fmt.Errorf("%w get", ErrInvalidBatchData)

			break
		}

		record, err = b.records.Get(ctx, b.orgID, b.appID, operation.Collection, operation.RecordID, nil)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedOperationType, operation.Type)
	}

	result.Record = record
	result.Error = err
	result.Success = err == nil

	return result
}

// BatchBuilder helps build batch operations.
type BatchBuilder struct {
	operations []BatchOperation
}

// NewBatchBuilder creates a new batch builder.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{
		operations: make([]BatchOperation, 0),
	}
}

// AddCreate adds a record creation.
func (b *BatchBuilder) AddCreate(id, collection string, data interface{}) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{ID: id, Type: BatchCreate, Collection: collection, Data: data})

	return b
}

// AddUpdate adds a record update.
func (b *BatchBuilder) AddUpdate(id, collection, recordID string, data interface{}) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:         id,
		Type:       BatchUpdate,
		Collection: collection,
		RecordID:   recordID,
		Data:       data,
	})

	return b
}

// AddDelete adds a record deletion.
func (b *BatchBuilder) AddDelete(id, collection, recordID string) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{ID: id, Type: BatchDelete, Collection: collection, RecordID: recordID})

	return b
}

// AddGet adds a record fetch.
func (b *BatchBuilder) AddGet(id, collection, recordID string) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{ID: id, Type: BatchGet, Collection: collection, RecordID: recordID})

	return b
}

// Build returns the operations.
func (b *BatchBuilder) Build() []BatchOperation {
	return b.operations
}
