// Package mocks provides gomock mocks of the core ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	jobs := mocks.NewMockJobStore(ctrl)
//	jobs.EXPECT().Get(gomock.Any(), "job1").Return(nil, model.ErrJobNotFound)
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_store_mock.go github.com/target/printmaker/internal/core JobStore
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=queue_store_mock.go github.com/target/printmaker/internal/core QueueStore
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=document_analyzer_mock.go github.com/target/printmaker/internal/core DocumentAnalyzer
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=transmitter_mock.go github.com/target/printmaker/internal/core Transmitter
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=quota_source_mock.go github.com/target/printmaker/internal/core QuotaSource
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=task_runner_mock.go github.com/target/printmaker/internal/core TaskRunner
