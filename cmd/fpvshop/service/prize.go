package service

import (
	"time"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
	"github.com/shopspring/decimal"
)

// OrdersPerSpin - сколько подтверждённых заказов за день дают одно вращение.
const OrdersPerSpin = 2

const basePrize int64 = 10

// MinDailySpend - минимальная сумма подтверждённых заказов за день.
var MinDailySpend = decimal.NewFromInt(999)

// prizeLadder упорядочена по убыванию порога, выигрывает первая подходящая ступень.
var prizeLadder = []struct {
	threshold decimal.Decimal
	prize     int64
}{
	{decimal.NewFromInt(5000), 50},
	{decimal.NewFromInt(4000), 40},
	{decimal.NewFromInt(3000), 30},
	{decimal.NewFromInt(2000), 20},
}

// PrizeFor возвращает размер награды по сумме подтверждённых заказов за день.
func PrizeFor(total decimal.Decimal) int64 {
	for _, step := range prizeLadder {
		if total.GreaterThanOrEqual(step.threshold) {
			return step.prize
		}
	}
	return basePrize
}

func AllowedSpins(confirmedOrders int) int {
	if confirmedOrders <= 0 {
		return 0
	}
	return confirmedOrders / OrdersPerSpin
}

// Eligible сообщает, проходит ли дневная статистика пороги по заказам и сумме.
func Eligible(stats models.OrderStats) bool {
	return AllowedSpins(stats.Count) > 0 && !stats.Total.LessThan(MinDailySpend)
}

// DayWindowAt возвращает сутки [00:00, 00:00 следующего дня) в поясе loc, содержащие t.
func DayWindowAt(t time.Time, loc *time.Location) models.DayWindow {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return models.DayWindow{Start: start, End: start.AddDate(0, 0, 1)}
}
