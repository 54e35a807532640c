package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicateRule         = errors.New("alert rule already exists for this coin and type")
	ErrPoolClosed            = errors.New("stake pool is closed until it is archived")
	ErrDuplicatePendingStake = errors.New("you already have a pending stake for this coin and alert type")
	ErrPoolState             = errors.New("stake pool is not in a state that allows this action")
	ErrStoreUnavailable      = errors.New("store unavailable")
)

// ValidationError 参数不合法，不会落库
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// QuotaExceededError 生效规则数达到套餐上限
type QuotaExceededError struct {
	Current int
	Limit   int
	Plan    string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("alert quota exceeded: %d/%d active rules on %s plan", e.Current, e.Limit, e.Plan)
}
