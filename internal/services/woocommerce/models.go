package woocommerce

// Product represents a WooCommerce REST v3 product
type Product struct {
	ID               int64       `json:"id"`
	Name             string      `json:"name"`
	Slug             string      `json:"slug"`
	Permalink        string      `json:"permalink"`
	Type             string      `json:"type"`
	Status           string      `json:"status"`
	Description      string      `json:"description"`
	ShortDescription string      `json:"short_description"`
	Sku              string      `json:"sku"`
	Price            string      `json:"price"`
	RegularPrice     string      `json:"regular_price"`
	SalePrice        string      `json:"sale_price"`
	OnSale           bool        `json:"on_sale"`
	StockStatus      string      `json:"stock_status"`
	Weight           string      `json:"weight"`
	Dimensions       Dimensions  `json:"dimensions"`
	Categories       []Term      `json:"categories"`
	Tags             []Term      `json:"tags"`
	Images           []Image     `json:"images"`
	Attributes       []Attribute `json:"attributes"`
}

type Dimensions struct {
	Length string `json:"length"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// Term is a category or tag reference
type Term struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Image struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

type Attribute struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Options []string `json:"options"`
	Visible bool     `json:"visible"`
}

// ProductsPage is one page of the products listing with the pagination
// headers WooCommerce reports.
type ProductsPage struct {
	Products   []Product
	Total      int
	TotalPages int
}

const (
	StockInStock    = "instock"
	StockOutOfStock = "outofstock"
	StockBackorder  = "onbackorder"
)
