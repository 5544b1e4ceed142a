package models

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a generation failure for the caller.
type ErrorCode string

const (
	ErrInvalidURL      ErrorCode = "INVALID_URL"
	ErrNotPublic       ErrorCode = "NOT_PUBLIC"
	ErrFetchFailed     ErrorCode = "FETCH_FAILED"
	ErrParseFailed     ErrorCode = "PARSE_FAILED"
	ErrEPUBBuildFailed ErrorCode = "EPUB_BUILD_FAILED"
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrRateLimited     ErrorCode = "RATE_LIMITED"
)

// Messages shown to the caller for each code when no more specific message applies.
const (
	MsgURLRequired    = "URLを入力してください"
	MsgInvalidURL     = "有効なGoogleドキュメントのURLを入力してください"
	MsgNotPublic      = "このドキュメントは非公開の可能性があります。「リンクを知っている全員が閲覧可」に設定してください。"
	MsgFetchFailed    = "ドキュメントの取得に失敗しました"
	MsgParseFailed    = "ドキュメントの内容を解析できませんでした"
	MsgBuildFailed    = "EPUB生成中にエラーが発生しました"
	MsgInvalidRequest = "リクエストの形式が正しくありません"
	MsgRateLimited    = "リクエストが多すぎます。しばらくしてから再度お試しください。"
)

// GenerationError is a failure carrying an ErrorCode and a caller-facing message.
// Err holds the internal cause, which is logged but never shown to the caller.
type GenerationError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// NewError returns a GenerationError with the given code, message and cause.
func NewError(code ErrorCode, message string, err error) *GenerationError {
	return &GenerationError{Code: code, Message: message, Err: err}
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode carried by err, or ErrEPUBBuildFailed when err
// is not a GenerationError.
func CodeOf(err error) ErrorCode {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ErrEPUBBuildFailed
}

// ResponseFor converts err into the caller-facing error body. Causes of
// EPUB_BUILD_FAILED are replaced by the generic message.
func ResponseFor(err error) ErrorResponse {
	var ge *GenerationError
	if errors.As(err, &ge) && ge.Code != ErrEPUBBuildFailed {
		return ErrorResponse{ErrorCode: ge.Code, Message: ge.Message}
	}
	return ErrorResponse{ErrorCode: ErrEPUBBuildFailed, Message: MsgBuildFailed}
}
