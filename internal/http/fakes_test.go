package httpx

import (
	"context"
	"io"
	"log/slog"

	"github.com/voicebot/consultd/internal/domain/model"
	"github.com/voicebot/consultd/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeBatch struct {
	submitFn func(ctx context.Context, req service.BatchRequest) ([]string, error)
	statusFn func(ctx context.Context, limit int) (model.QueueStatus, error)
}

func (f *fakeBatch) Submit(ctx context.Context, req service.BatchRequest) ([]string, error) {
	return f.submitFn(ctx, req)
}

func (f *fakeBatch) QueueStatus(ctx context.Context, limit int) (model.QueueStatus, error) {
	return f.statusFn(ctx, limit)
}

type fakeStarter struct {
	startFn func(ctx context.Context, accountID string) (*model.Job, error)
}

func (f *fakeStarter) StartNext(ctx context.Context, accountID string) (*model.Job, error) {
	return f.startFn(ctx, accountID)
}

type fakeReconciler struct {
	payloads []*model.ResultPayload
}

func (f *fakeReconciler) HandleResult(_ context.Context, p *model.ResultPayload) model.StatusEvent {
	f.payloads = append(f.payloads, p)
	return model.StatusEvent{
		ContactID:    p.ContactID,
		State:        model.JobStateCompleted,
		SessionIndex: 3,
	}
}

type fakeHistory struct {
	listFn func(ctx context.Context, contactID string, limit int) ([]model.ConsultationRecord, error)
}

func (f *fakeHistory) ListByContact(ctx context.Context, contactID string, limit int) ([]model.ConsultationRecord, error) {
	return f.listFn(ctx, contactID, limit)
}
