// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// 層をまたいで使用する番兵エラー。
var (
	// ErrNotFound は名前やIDで指定した対象が存在しないことを示す。
	ErrNotFound = errors.New("not found")

	// ErrAmbiguousLookup は自然キーに複数の行が一致した整合性エラーを示す。
	ErrAmbiguousLookup = errors.New("ambiguous lookup")

	// ErrNotAuthenticated はセッションにユーザーIDがないことを示す。
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotOwner はセッションのユーザーが対象の所有者でないことを示す。
	ErrNotOwner = errors.New("not owner")

	// ErrStoreUnavailable はバックエンドのストアに到達できないことを示す。
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrVersionConflict は楽観的ロックの競合（他の書き込みが先行した）を示す。
	ErrVersionConflict = errors.New("version conflict")

	// ErrDuplicateItem は同一カテゴリ内に同名の項目が既に存在することを示す。
	ErrDuplicateItem = errors.New("duplicate item")
)

// ValidationError はユーザー入力の不備を表す。
type ValidationError struct {
	Field   string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError はValidationErrorを生成する。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation はerrがValidationErrorを含むかどうかを返す。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeDuplicateItem    = "DUPLICATE_ITEM"
	ErrCodeVersionConflict  = "VERSION_CONFLICT"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeCSRF             = "CSRF_FAILED"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// NewValidationAPIError は入力不備エラーを生成する。
func NewValidationAPIError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewNotFoundAPIError は対象未検出エラーを生成する。
func NewNotFoundAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  "指定されたカテゴリまたは項目が見つかりません。",
		Category: "catalog",
		Action:   "カテゴリ名と項目名を確認してください。",
	}
}

// NewDuplicateItemAPIError は同名項目の重複エラーを生成する。
func NewDuplicateItemAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateItem,
		Message:  "同じカテゴリに同名の項目が既に存在します。",
		Category: "catalog",
		Action:   "別の名前を指定してください。",
	}
}

// NewVersionConflictAPIError は同時更新の競合エラーを生成する。
func NewVersionConflictAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeVersionConflict,
		Message:  "項目が他のリクエストによって更新されました。",
		Category: "catalog",
		Action:   "最新の内容を読み込んでから再度お試しください。",
	}
}

// NewStoreUnavailableAPIError はストア到達不能エラーを生成する。
func NewStoreUnavailableAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "データストアに接続できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewForbiddenAPIError は所有者以外による操作のエラーを生成する。
func NewForbiddenAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この項目を変更する権限がありません。",
		Category: "auth",
		Action:   "項目を作成したアカウントでログインしてください。",
	}
}

// NewCSRFAPIError はCSRFトークン検証失敗のエラーを生成する。
func NewCSRFAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRF,
		Message:  "フォームの有効期限が切れたか、不正な送信です。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度送信してください。",
	}
}

// NewRateLimitAPIError はレート制限超過のエラーを生成する。
func NewRateLimitAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterの秒数が経過してから再度お試しください。",
	}
}

// NewInternalAPIError は内部エラーを生成する。
func NewInternalAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
