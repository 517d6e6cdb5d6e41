package db

import (
	"math"

	"Gin_postgres_redis_library/models"
)

// DefaultFinePerDay 每逾期一天的罚金
const DefaultFinePerDay = 2.0

// ComputeFine 按日历日计算逾期罚金，按时或提前归还为 0
func ComputeFine(due, returned models.Date, perDay float64) float64 {
	days := returned.DaysAfter(due)
	if days <= 0 {
		return 0
	}
	return math.Round(float64(days)*perDay*100) / 100
}
