package mail

import (
	"errors"

	emailverifier "github.com/AfterShip/email-verifier"
)

var ErrInvalidSyntax = errors.New("email address syntax is invalid")

type Verifier struct {
	verifier *emailverifier.Verifier
}

// NewVerifier 只做语法校验；保存偏好时不做 SMTP 探测
func NewVerifier() *Verifier {
	return &Verifier{
		verifier: emailverifier.NewVerifier().DisableCatchAllCheck(),
	}
}

// CheckSyntax 校验邮箱格式
func (v *Verifier) CheckSyntax(email string) error {
	if !v.verifier.ParseAddress(email).Valid {
		return ErrInvalidSyntax
	}
	return nil
}
