package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/jobboard/internal/model"
)

// PostgresJobRepo はPostgreSQLを使用した求人リポジトリ。
type PostgresJobRepo struct {
	db *sql.DB
}

// NewPostgresJobRepo はPostgresJobRepoを生成する。
func NewPostgresJobRepo(db *sql.DB) *PostgresJobRepo {
	return &PostgresJobRepo{db: db}
}

// jobColumns はjobsテーブルのSELECT句。Scanの順序と対応する。
const jobColumns = `id, title, company_name, location, job_type, description, owner_id, created_at, updated_at`

// scanJob は1行分の求人レコードを読み取る。
func scanJob(row interface{ Scan(...interface{}) error }) (*model.Job, error) {
	job := &model.Job{}
	err := row.Scan(
		&job.ID, &job.Title, &job.CompanyName, &job.Location,
		&job.JobType, &job.Description, &job.OwnerID,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListAll は全求人をcreated_at降順で返す。0件の場合は空スライスを返す。
func (r *PostgresJobRepo) ListAll(ctx context.Context) ([]*model.Job, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("求人一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ListByOwner は指定ユーザーが所有する求人をcreated_at降順で返す。
func (r *PostgresJobRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Job, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの求人一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ListFiltered は絞り込み条件に一致する求人をcreated_at降順で返す。
// Locationは大文字小文字を区別しない部分一致（ILIKE）、JobTypeは完全一致。
func (r *PostgresJobRepo) ListFiltered(ctx context.Context, filter model.JobFilter) ([]*model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []interface{}{}

	if filter.Location != "" {
		args = append(args, "%"+filter.Location+"%")
		query += fmt.Sprintf(" AND location ILIKE $%d", len(args))
	}
	if filter.JobType != "" {
		args = append(args, filter.JobType)
		query += fmt.Sprintf(" AND job_type = $%d", len(args))
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("求人の絞り込み検索に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// FindByID は指定IDの求人を取得する。見つからない場合はnilを返す。
func (r *PostgresJobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`,
		id,
	))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("求人の取得に失敗しました: %w", err)
	}

	return job, nil
}

// Create は求人を作成する。
func (r *PostgresJobRepo) Create(ctx context.Context, job *model.Job) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO jobs (id, title, company_name, location, job_type, description, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, job.Title, job.CompanyName, job.Location,
		job.JobType, job.Description, job.OwnerID,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("求人の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は求人の全フィールドを保存する。id、owner_id、created_atは変更しない。
func (r *PostgresJobRepo) Update(ctx context.Context, job *model.Job) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET
		    title = $2, company_name = $3, location = $4,
		    job_type = $5, description = $6, updated_at = $7
		 WHERE id = $1`,
		job.ID, job.Title, job.CompanyName, job.Location,
		job.JobType, job.Description, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("求人の更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの求人を削除する。
// 削除された場合はtrue、該当行が存在しなかった場合はfalseを返す。
func (r *PostgresJobRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("求人の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// collectJobs はrows全体を走査して求人スライスを構築する。
// 0件の場合も空スライスを返す（nilを返さない）。
func collectJobs(rows *sql.Rows) ([]*model.Job, error) {
	jobs := []*model.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("求人レコードの読み取りに失敗しました: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("求人レコードの走査に失敗しました: %w", err)
	}

	return jobs, nil
}

// compile-time interface check
var _ JobRepository = (*PostgresJobRepo)(nil)
