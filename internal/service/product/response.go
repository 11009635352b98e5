package product

import "github.com/vladislavdragonenkov/kiosk/internal/domain"

// Response — представление продукта для внешнего API.
type Response struct {
	ProductNumber string `json:"product_number"`
	Type          string `json:"type"`
	SellingStatus string `json:"selling_status"`
	Name          string `json:"name"`
	PriceMinor    int64  `json:"price_minor"`
}

func newResponse(product domain.Product) Response {
	return Response{
		ProductNumber: product.ProductNumber,
		Type:          string(product.Type),
		SellingStatus: string(product.SellingStatus),
		Name:          product.Name,
		PriceMinor:    product.PriceMinor,
	}
}
