// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/jobboard/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	// OAuth経由の初回ログインで使用する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れの全セッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// JobRepository は求人データの永続化インターフェース。
// 所有権の検証はサービス層（internal/job）で行い、ここでは純粋な永続化のみを担う。
type JobRepository interface {
	// ListAll は全求人をcreated_at降順で返す。0件の場合は空スライスを返す。
	ListAll(ctx context.Context) ([]*model.Job, error)

	// ListByOwner は指定ユーザーが所有する求人をcreated_at降順で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Job, error)

	// ListFiltered は絞り込み条件に一致する求人をcreated_at降順で返す。
	// Locationは大文字小文字を区別しない部分一致（ILIKE）、JobTypeは完全一致。
	// 空の条件は制約を課さない。
	ListFiltered(ctx context.Context, filter model.JobFilter) ([]*model.Job, error)

	// FindByID は指定IDの求人を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Job, error)

	// Create は求人を作成する。
	Create(ctx context.Context, job *model.Job) error

	// Update は求人の全フィールドを保存する。id、owner_id、created_atは変更しない。
	Update(ctx context.Context, job *model.Job) error

	// DeleteByID は指定IDの求人を削除する。
	// 削除された場合はtrue、該当行が存在しなかった場合はfalseを返す。
	DeleteByID(ctx context.Context, id string) (bool, error)
}
