package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entity 字符串主键；种子数据使用可读 ID（course-1 / q1-opt1），其余由 NewID 生成
// swagger:model
type Entity struct {
	ID        string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (e *Entity) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = NewID()
	}
	return nil
}

func NewID() string {
	return uuid.NewString()
}
