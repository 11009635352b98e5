package domain

import "time"

// TimelineEvent описывает событие в жизненном цикле заказа.
// Step фиксирует шаг конвейера создания заказа, на котором событие произошло.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Step     OrderStep
	Reason   string
	Occurred time.Time
}
