package domain

import "sort"

// AggregateStockDemand считает, сколько единиц каждого stock-tracked продукта
// запрошено в заказе. Продукты без складского учёта отбрасываются и до
// склада не доходят. Функция чистая: вход не мутирует, порядок входа не важен.
func AggregateStockDemand(products []Product) (map[string]int32, error) {
	demand := make(map[string]int32)
	for _, p := range products {
		tracked, err := p.Type.StockTracked()
		if err != nil {
			return nil, err
		}
		if !tracked {
			continue
		}
		demand[p.ProductNumber]++
	}
	return demand, nil
}

// SortedProductNumbers возвращает номера продуктов спроса в отсортированном
// порядке. Детерминированный порядок списаний исключает взаимную блокировку
// двух заказов, пересекающихся по нескольким продуктам.
func SortedProductNumbers(demand map[string]int32) []string {
	numbers := make([]string, 0, len(demand))
	for number := range demand {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)
	return numbers
}
