package application

import (
	"context"

	reviewdomain "github.com/MiroDojkic/surveygizmo-dashboard/internal/review/domain"
)

// responseQueryService はダッシュボード表示用の読み取り専用サービス。
type responseQueryService struct {
	store ResponseStore
}

// NewResponseQueryService constructs the dashboard read service.
func NewResponseQueryService(store ResponseStore) ResponseQueryService {
	return &responseQueryService{store: store}
}

func (s *responseQueryService) List(ctx context.Context, filter ResponseFilter, paging Paging) ([]reviewdomain.SurveyResponse, error) {
	return s.store.Find(ctx, filter, paging)
}

func (s *responseQueryService) Detail(ctx context.Context, id string) (*reviewdomain.SurveyResponse, error) {
	return s.store.FindByID(ctx, id)
}
