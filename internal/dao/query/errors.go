package query

import (
	"errors"

	"coco/internal/dao"

	"gorm.io/gorm"
)

// translate 将 gorm 错误转换为 dao 层错误（需开启 TranslateError）
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return dao.ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return dao.ErrDuplicateKey
	}
	return err
}
