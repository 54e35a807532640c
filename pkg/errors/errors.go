package errors

import (
	stderrors "errors"
	"fmt"

	"coco/pkg/errors/ecode"
)

// withCode 携带业务错误码的错误，DecodeErr 依据它生成响应
type withCode struct {
	code    int
	message string
	cause   error
}

func (w *withCode) Error() string {
	if w.cause == nil {
		return w.message
	}
	return fmt.Sprintf("%s: %v", w.message, w.cause)
}

func (w *withCode) Unwrap() error { return w.cause }

func (w *withCode) Code() int { return w.code }

func New(message string) error {
	return stderrors.New(message)
}

// WithCode 构造一个带错误码的错误
func WithCode(code int, format string, args ...any) error {
	return &withCode{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap 给已有错误附加错误码和提示信息，err 为 nil 时仍会生成 code 对应的错误
func Wrap(err error, code int, message string) error {
	return &withCode{code: code, message: message, cause: err}
}

func Wrapf(err error, code int, format string, args ...any) error {
	return &withCode{code: code, message: fmt.Sprintf(format, args...), cause: err}
}

// DecodeErr 解析出错误码和给客户端的提示信息
func DecodeErr(err error) (int, string) {
	if err == nil {
		return ecode.Success, ecode.Text(ecode.Success)
	}
	var wc *withCode
	if stderrors.As(err, &wc) {
		if wc.message == "" {
			return wc.code, ecode.Text(wc.code)
		}
		return wc.code, wc.message
	}
	return ecode.Unknown, err.Error()
}

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Unwrap(err error) error { return stderrors.Unwrap(err) }
