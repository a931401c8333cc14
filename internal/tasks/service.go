package tasks

import "context"

// Service is the seam between the HTTP layer and storage. It currently
// forwards every call to the repository unchanged.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateTask(ctx context.Context, in CreateTask) (Task, error) {
	return s.repo.Create(ctx, in)
}

func (s *Service) ListTasks(ctx context.Context, completed *bool) ([]Task, error) {
	return s.repo.FindAll(ctx, completed)
}

func (s *Service) GetTask(ctx context.Context, id int64) (Task, bool, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) UpdateTask(ctx context.Context, id int64, patch UpdateTask) (Task, bool, error) {
	return s.repo.Update(ctx, id, patch)
}

func (s *Service) DeleteTask(ctx context.Context, id int64) (bool, error) {
	return s.repo.Delete(ctx, id)
}
