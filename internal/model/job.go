// Package model はドメインモデルを定義する。
package model

import "time"

// JobType は求人の雇用形態を表す。
type JobType string

const (
	// JobTypeFullTime はフルタイム雇用を示す。
	JobTypeFullTime JobType = "Full-Time"
	// JobTypePartTime はパートタイム雇用を示す。
	JobTypePartTime JobType = "Part-Time"
	// JobTypeContract は契約雇用を示す。
	JobTypeContract JobType = "Contract"
)

// IsValid はJobTypeが定義済みの3値のいずれかであるかを返す。
func (t JobType) IsValid() bool {
	switch t {
	case JobTypeFullTime, JobTypePartTime, JobTypeContract:
		return true
	}
	return false
}

// Job は求人情報を表す。
// IDとOwnerIDは作成後に変更されない。
type Job struct {
	ID          string
	Title       string
	CompanyName string
	Location    string
	JobType     JobType
	Description string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// JobInput は求人の作成時に受け取る入力フィールド。
type JobInput struct {
	Title       string
	CompanyName string
	Location    string
	JobType     JobType
	Description string
}

// Validate は作成時の不変条件を検証する。
// すべてのテキストフィールドが非空であり、JobTypeが定義済みの値であること。
// 違反があればVALIDATION_FAILEDのAPIErrorを返す。
func (in *JobInput) Validate() error {
	switch {
	case in.Title == "":
		return NewValidationFailedError("タイトルは必須です")
	case in.CompanyName == "":
		return NewValidationFailedError("会社名は必須です")
	case in.Location == "":
		return NewValidationFailedError("勤務地は必須です")
	case in.Description == "":
		return NewValidationFailedError("仕事内容は必須です")
	case !in.JobType.IsValid():
		return NewValidationFailedError("雇用形態は Full-Time、Part-Time、Contract のいずれかを指定してください")
	}
	return nil
}

// JobPatch は求人の部分更新で上書きするフィールドを表す。
// nilのフィールドは変更されない。ID、OwnerID、CreatedAtは更新対象外。
type JobPatch struct {
	Title       *string
	CompanyName *string
	Location    *string
	JobType     *JobType
	Description *string
}

// Validate は部分更新の不変条件を検証する。
// 指定されたフィールドのみを対象とし、空文字列や未定義のJobTypeを拒否する。
func (p *JobPatch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return NewValidationFailedError("タイトルを空にすることはできません")
	}
	if p.CompanyName != nil && *p.CompanyName == "" {
		return NewValidationFailedError("会社名を空にすることはできません")
	}
	if p.Location != nil && *p.Location == "" {
		return NewValidationFailedError("勤務地を空にすることはできません")
	}
	if p.Description != nil && *p.Description == "" {
		return NewValidationFailedError("仕事内容を空にすることはできません")
	}
	if p.JobType != nil && !p.JobType.IsValid() {
		return NewValidationFailedError("雇用形態は Full-Time、Part-Time、Contract のいずれかを指定してください")
	}
	return nil
}

// JobFilter は求人一覧の絞り込み条件を表す。
// Locationは大文字小文字を区別しない部分一致、JobTypeは完全一致。
// 空のフィールドは条件を課さない。
type JobFilter struct {
	Location string
	JobType  JobType
}

// IsEmpty は絞り込み条件が一切指定されていないかを返す。
func (f JobFilter) IsEmpty() bool {
	return f.Location == "" && f.JobType == ""
}
