package repository

import (
	"errors"

	"corp_learning_backend/internal/util"

	"gorm.io/gorm"
)

// translate 将 gorm 的记录不存在转换为带层级信息的 NotFoundError
func translate(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.NewNotFound(kind, id)
	}
	return err
}
