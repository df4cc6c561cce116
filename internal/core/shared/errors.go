package shared

import (
	"errors"
	"fmt"
)

// 境界層で応答コードへ変換するためのエラー種別です。errors.Is で判定します。
var (
	// ErrNotFound は対象が存在しない場合の種別です。
	ErrNotFound = errors.New("not found")
	// ErrInvalidState は事前条件を満たさない操作の種別です。
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation は入力値が不正な場合の種別です。
	ErrValidation = errors.New("validation error")
	// ErrForbidden は呼び出し元に権限がない場合の種別です。
	ErrForbidden = errors.New("forbidden")
)

// DomainError はドメイン名・操作名・種別を伴うエラーです。
type DomainError struct {
	Domain  string
	Op      string
	Kind    error
	Message string
	Err     error
}

// Error は error インターフェースを実装します。
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Domain, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Domain, e.Message)
}

// Unwrap は内包するエラー、なければ種別を返します。
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is は種別または内包エラーとの一致を判定します。
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewError は DomainError を生成します。
func NewError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// Wrap は既存のエラーにドメイン文脈を付与します。
func Wrap(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// Invalid は入力検証エラーを生成します。
func Invalid(domain, field string) *DomainError {
	return NewError(domain, "Validate", ErrValidation, "invalid "+field)
}

// IsNotFound は NotFound 種別かを判定します。
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidState は InvalidState 種別かを判定します。
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

// IsValidation は Validation 種別かを判定します。
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsForbidden は Forbidden 種別かを判定します。
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }
