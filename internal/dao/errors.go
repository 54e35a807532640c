package dao

import "errors"

var (
	// ErrRecordNotFound 记录不存在
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateKey 违反唯一约束
	ErrDuplicateKey = errors.New("duplicate key")
)
