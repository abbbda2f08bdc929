// Package job は求人の登録・更新・削除・閲覧のドメインロジックを提供する。
//
// Service は所有権を強制するアクセス層として機能する。読み取りは誰でも可能、
// 書き込みは認証済みユーザーのみ、更新・削除は所有者のみに制限される。
// 所有権チェックはミドルウェアのゲートとは独立にここで再検証される。
// ゲートはページ遷移を守るだけで、どのレコードが操作対象かは関知しないため、
// 「所有者のみが変更できる」という不変条件を具体的なレコードに対して
// 実際に強制する唯一の場所がこのサービス層となる。
package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/repository"
	"github.com/hitoshi/jobboard/internal/security"
)

// Metrics は求人操作のメトリクス記録インターフェース。
// 計測が不要な場合はnilを許容する。
type Metrics interface {
	RecordJobCreated()
	RecordJobDeleted()
}

// Service は求人のサービス層。
type Service struct {
	jobRepo   repository.JobRepository
	sanitizer security.DescriptionSanitizerService
	metrics   Metrics
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい。
func NewService(jobRepo repository.JobRepository, sanitizer security.DescriptionSanitizerService, metrics Metrics) *Service {
	return &Service{
		jobRepo:   jobRepo,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// ListAll は全求人をcreated_at降順で返す。認証不要。
// 読み取りエラーはログに記録し、空スライスに縮退させる。
// 一覧ページはストアの読み取りエラーで落とさない。
func (s *Service) ListAll(ctx context.Context) []*model.Job {
	jobs, err := s.jobRepo.ListAll(ctx)
	if err != nil {
		slog.Error("failed to list jobs", slog.String("error", err.Error()))
		return []*model.Job{}
	}
	return jobs
}

// ListByOwner は指定ユーザーが所有する求人をcreated_at降順で返す。
// ownerIDが空の場合はエラーにせず空スライスを返す（防御的デフォルト）。
// 読み取りエラーも同様に空スライスに縮退させる。
func (s *Service) ListByOwner(ctx context.Context, ownerID string) []*model.Job {
	if ownerID == "" {
		return []*model.Job{}
	}

	jobs, err := s.jobRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		slog.Error("failed to list jobs by owner",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return []*model.Job{}
	}
	return jobs
}

// Filter は絞り込み条件に一致する求人をcreated_at降順で返す。
// Locationは大文字小文字を区別しない部分一致、JobTypeは完全一致。
// 条件が両方空の場合はListAllと等価。読み取りエラーは空スライスに縮退させる。
func (s *Service) Filter(ctx context.Context, filter model.JobFilter) []*model.Job {
	if filter.IsEmpty() {
		return s.ListAll(ctx)
	}

	jobs, err := s.jobRepo.ListFiltered(ctx, filter)
	if err != nil {
		slog.Error("failed to filter jobs",
			slog.String("location", filter.Location),
			slog.String("job_type", string(filter.JobType)),
			slog.String("error", err.Error()),
		)
		return []*model.Job{}
	}
	return jobs
}

// GetByID は指定IDの求人を取得する。
// 見つからない場合はJOB_NOT_FOUNDを返す。トランスポート障害とは区別される。
func (s *Service) GetByID(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.jobRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("求人の取得に失敗しました: %w", err)
	}
	if job == nil {
		return nil, model.NewJobNotFoundError(id)
	}
	return job, nil
}

// Create は新規求人を作成する。
// ownerIDが空の場合はUNAUTHORIZED。入力が不変条件に違反する場合は
// VALIDATION_FAILEDを返し、レコードは作成されない。
// 仕事内容のHTMLは保存前にサニタイズされる。
func (s *Service) Create(ctx context.Context, ownerID string, input model.JobInput) (*model.Job, error) {
	if ownerID == "" {
		return nil, model.NewUnauthorizedError()
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	job := &model.Job{
		ID:          uuid.New().String(),
		Title:       input.Title,
		CompanyName: input.CompanyName,
		Location:    input.Location,
		JobType:     input.JobType,
		Description: s.sanitizer.Sanitize(input.Description),
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("求人の作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordJobCreated()
	}

	slog.Info("job created",
		slog.String("job_id", job.ID),
		slog.String("owner_id", ownerID),
		slog.String("job_type", string(job.JobType)),
	)

	return job, nil
}

// Update は求人を部分更新する。
// ownerIDが空の場合はUNAUTHORIZED、求人が存在しない場合はJOB_NOT_FOUND、
// 所有者が一致しない場合はFORBIDDENを返す。
// 指定されたフィールドのみを上書きし、ID・OwnerID・CreatedAtは変更しない。
// UpdatedAtは更新のたびに刷新される。
func (s *Service) Update(ctx context.Context, ownerID, id string, patch model.JobPatch) (*model.Job, error) {
	if ownerID == "" {
		return nil, model.NewUnauthorizedError()
	}

	if err := patch.Validate(); err != nil {
		return nil, err
	}

	job, err := s.jobRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("求人の取得に失敗しました: %w", err)
	}
	if job == nil {
		return nil, model.NewJobNotFoundError(id)
	}
	if job.OwnerID != ownerID {
		return nil, model.NewForbiddenError()
	}

	if patch.Title != nil {
		job.Title = *patch.Title
	}
	if patch.CompanyName != nil {
		job.CompanyName = *patch.CompanyName
	}
	if patch.Location != nil {
		job.Location = *patch.Location
	}
	if patch.JobType != nil {
		job.JobType = *patch.JobType
	}
	if patch.Description != nil {
		job.Description = s.sanitizer.Sanitize(*patch.Description)
	}
	job.UpdatedAt = time.Now()

	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("求人の更新に失敗しました: %w", err)
	}

	slog.Info("job updated",
		slog.String("job_id", job.ID),
		slog.String("owner_id", ownerID),
	)

	return job, nil
}

// Delete は求人を削除する。削除は物理削除で取り消せない。
// ownerIDが空の場合はUNAUTHORIZED、求人が存在しない場合はJOB_NOT_FOUND、
// 所有者が一致しない場合はFORBIDDENを返す。
// 削除済みの求人に対する2回目のDeleteはJOB_NOT_FOUNDを返す。
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return model.NewUnauthorizedError()
	}

	job, err := s.jobRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("求人の取得に失敗しました: %w", err)
	}
	if job == nil {
		return model.NewJobNotFoundError(id)
	}
	if job.OwnerID != ownerID {
		return model.NewForbiddenError()
	}

	deleted, err := s.jobRepo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("求人の削除に失敗しました: %w", err)
	}
	if !deleted {
		// FindByIDの後に他リクエストが先に削除したケース
		return model.NewJobNotFoundError(id)
	}

	if s.metrics != nil {
		s.metrics.RecordJobDeleted()
	}

	slog.Info("job deleted",
		slog.String("job_id", id),
		slog.String("owner_id", ownerID),
	)

	return nil
}
