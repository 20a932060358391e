// Package mocks provides gomock implementations of the consultd core ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	queue := mocks.NewMockWaitingQueue(ctrl)
//	queue.EXPECT().DequeueNext(gomock.Any()).Return(nil, nil)
//
// For stateful fakes (FIFO queue, TTL correlation store) see the memory subpackage.
package mocks

// Enqueue, DequeueNext, Requeue, Peek, Len.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=waiting_queue_mock.go github.com/voicebot/consultd/internal/core WaitingQueue

// FindByID, Save.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=contact_directory_mock.go github.com/voicebot/consultd/internal/core ContactDirectory

// NextIndex.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_index_allocator_mock.go github.com/voicebot/consultd/internal/core SessionIndexAllocator

// Remember, Resolve, Forget.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=correlation_store_mock.go github.com/voicebot/consultd/internal/core CorrelationStore

// Dispatch.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=orchestrator_client_mock.go github.com/voicebot/consultd/internal/core OrchestratorClient
