package catalog

import "github.com/shopspring/decimal"

// DefaultItems returns the built-in catalog.
func DefaultItems() []Item {
	return []Item{
		{
			ID:          "1",
			Name:        "Headset Razer Kraken",
			ImageURL:    "https://images8.kabum.com.br/produtos/fotos/76488/76488_1526584582_g.jpg",
			Description: "Um bonito headset, né?",
			Price:       decimal.RequireFromString("199.99"),
			Category:    "Fone de Ouvido",
		},
		{
			ID:          "2",
			Name:        "Earphones in-ear JBL",
			ImageURL:    "https://images-na.ssl-images-amazon.com/images/I/51Rz5q4nUNL._SY450_.jpg",
			Description: "Um bonito fonezinho, né?",
			Price:       decimal.RequireFromString("99.99"),
			Category:    "Fone de Ouvido",
		},
		{
			ID:          "3",
			Name:        "Pen Drive 3.0 32gb Kingston",
			ImageURL:    "https://www.ibyte.com.br/media/catalog/product/cache/1/image/800x/9df78eab33525d08d6e5fb8d27136e95/3/4/34107-1-pen-drive-kingston-datatraveler-usb-3-1-32gb-dt50-32gb-vermelho.jpg",
			Description: "Um bonito pen drive, né? E rápido também!",
			Price:       decimal.RequireFromString("49.99"),
			Category:    "Pen Drive",
		},
	}
}

// DefaultCategories returns the built-in category labels, unsorted.
func DefaultCategories() []string {
	return []string{
		"Fone de Ouvido",
		"Pen Drive",
		"WebCam",
		"Teclado",
		"Mouse",
		"Acessórios",
		"Caixas de Som",
		"Joystick",
	}
}
