package db

import (
	"Gin_postgres_redis_library/models"

	"gorm.io/gorm"
)

// 库存台账：available 只在这里改，且必须在调用方的事务里

// decrementAvailability 借出一本：条件更新，不会减到 0 以下
func decrementAvailability(tx *gorm.DB, isbn string) error {
	res := tx.Model(&models.Book{}).
		Where("isbn = ? AND available > 0", isbn).
		UpdateColumn("available", gorm.Expr("available - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return missingOr(tx, isbn, ErrBookUnavailable)
	}
	return nil
}

// incrementAvailability 归还一本：不会超过 total_copies
func incrementAvailability(tx *gorm.DB, isbn string) error {
	res := tx.Model(&models.Book{}).
		Where("isbn = ? AND available < total_copies", isbn).
		UpdateColumn("available", gorm.Expr("available + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return missingOr(tx, isbn, ErrOverCapacity)
	}
	return nil
}

// 条件没命中时区分：书不存在 还是 条件不满足
func missingOr(tx *gorm.DB, isbn string, otherwise error) error {
	var n int64
	if err := tx.Model(&models.Book{}).Where("isbn = ?", isbn).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return otherwise
}
