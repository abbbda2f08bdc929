package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/model"
)

// JobServiceInterface は求人ハンドラーが必要とするサービスインターフェース。
type JobServiceInterface interface {
	ListAll(ctx context.Context) []*model.Job
	ListByOwner(ctx context.Context, ownerID string) []*model.Job
	Filter(ctx context.Context, filter model.JobFilter) []*model.Job
	GetByID(ctx context.Context, id string) (*model.Job, error)
	Create(ctx context.Context, ownerID string, input model.JobInput) (*model.Job, error)
	Update(ctx context.Context, ownerID, id string, patch model.JobPatch) (*model.Job, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// JobHandler は求人管理のHTTPハンドラー。
type JobHandler struct {
	service JobServiceInterface
}

// NewJobHandler はJobHandlerを生成する。
func NewJobHandler(service JobServiceInterface) *JobHandler {
	return &JobHandler{service: service}
}

// createJobRequest は求人作成リクエストのボディ。
type createJobRequest struct {
	Title       string `json:"title"`
	CompanyName string `json:"company_name"`
	Location    string `json:"location"`
	JobType     string `json:"job_type"`
	Description string `json:"description"`
}

// updateJobRequest は求人の部分更新リクエストのボディ。
// 省略されたフィールドは変更されない。
type updateJobRequest struct {
	Title       *string `json:"title"`
	CompanyName *string `json:"company_name"`
	Location    *string `json:"location"`
	JobType     *string `json:"job_type"`
	Description *string `json:"description"`
}

// jobResponse は求人情報のAPIレスポンス。
type jobResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CompanyName string    `json:"company_name"`
	Location    string    `json:"location"`
	JobType     string    `json:"job_type"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// jobListResponse は求人一覧のAPIレスポンス。
type jobListResponse struct {
	Jobs []jobResponse `json:"jobs"`
}

// ListJobs は求人一覧を返す。location・job_typeクエリで絞り込める。
// 絞り込み条件が両方空の場合は全件を返す。
// GET / および GET /jobs?location=xxx&job_type=yyy
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := model.JobFilter{
		Location: r.URL.Query().Get("location"),
		JobType:  model.JobType(r.URL.Query().Get("job_type")),
	}

	jobs := h.service.Filter(r.Context(), filter)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toJobListResponse(jobs))
}

// GetJob は求人詳細を返す。
// GET /jobs/{id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := h.service.GetByID(r.Context(), jobID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toJobResponse(job))
}

// Dashboard はログインユーザーが所有する求人一覧を返す。
// ゲートが保護するため匿名ではここに到達しないが、防御的に401も返せるようにする。
// GET /dashboard
func (h *JobHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	jobs := h.service.ListByOwner(r.Context(), userID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toJobListResponse(jobs))
}

// NewJobForm は求人作成フォームのメタデータを返す。
// GET /jobs/new
func (h *JobHandler) NewJobForm(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_types": []string{
			string(model.JobTypeFullTime),
			string(model.JobTypePartTime),
			string(model.JobTypeContract),
		},
	})
}

// EditJobForm は編集フォームのプリフィル用に求人を返す。
// 所有者以外がアクセスした場合はFORBIDDENを返す。
// GET /jobs/edit/{id}
func (h *JobHandler) EditJobForm(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	jobID := chi.URLParam(r, "id")

	job, err := h.service.GetByID(r.Context(), jobID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if job.OwnerID != userID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toJobResponse(job))
}

// CreateJob は求人を作成する。
// POST /jobs
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	// 匿名の場合は空のままサービス層に渡し、UNAUTHORIZEDを返させる
	userID, _ := middleware.UserIDFromContext(r.Context())

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	input := model.JobInput{
		Title:       req.Title,
		CompanyName: req.CompanyName,
		Location:    req.Location,
		JobType:     model.JobType(req.JobType),
		Description: req.Description,
	}

	job, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toJobResponse(job))
}

// UpdateJob は求人を部分更新する。
// PATCH /jobs/{id}
func (h *JobHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	jobID := chi.URLParam(r, "id")

	var req updateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	patch := model.JobPatch{
		Title:       req.Title,
		CompanyName: req.CompanyName,
		Location:    req.Location,
		Description: req.Description,
	}
	if req.JobType != nil {
		jobType := model.JobType(*req.JobType)
		patch.JobType = &jobType
	}

	job, err := h.service.Update(r.Context(), userID, jobID, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toJobResponse(job))
}

// DeleteJob は求人を削除する。
// DELETE /jobs/{id}
func (h *JobHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	jobID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, jobID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toJobResponse はmodel.JobからAPIレスポンスに変換する。
func toJobResponse(job *model.Job) jobResponse {
	return jobResponse{
		ID:          job.ID,
		Title:       job.Title,
		CompanyName: job.CompanyName,
		Location:    job.Location,
		JobType:     string(job.JobType),
		Description: job.Description,
		OwnerID:     job.OwnerID,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}

// toJobListResponse は求人スライスから一覧レスポンスに変換する。
// jobsフィールドは空でも必ずJSON配列になる。
func toJobListResponse(jobs []*model.Job) jobListResponse {
	resp := jobListResponse{Jobs: make([]jobResponse, 0, len(jobs))}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(job))
	}
	return resp
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeJobNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeEmailTaken:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
