package order

import (
	"time"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
)

// LineResponse — представление одной позиции заказа.
type LineResponse struct {
	ProductNumber string `json:"product_number"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	PriceMinor    int64  `json:"price_minor"`
}

// Response — представление заказа для внешнего API.
type Response struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	Lines        []LineResponse `json:"lines"`
	TotalMinor   int64          `json:"total_minor"`
	RegisteredAt time.Time      `json:"registered_at"`
}

func newResponse(order domain.Order) Response {
	lines := make([]LineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, LineResponse{
			ProductNumber: line.ProductNumber,
			Name:          line.Name,
			Type:          string(line.Type),
			PriceMinor:    line.PriceMinor,
		})
	}
	return Response{
		ID:           order.ID,
		Status:       string(order.Status),
		Lines:        lines,
		TotalMinor:   order.TotalMinor,
		RegisteredAt: order.RegisteredAt,
	}
}
