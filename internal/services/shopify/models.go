package shopify

// GraphQL response shapes for the catalog query. Only the fields the
// transformer reads are declared.

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// ProductsResponse is the body of the products query.
type ProductsResponse struct {
	Data struct {
		Products struct {
			Edges []struct {
				Node Product `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				HasNextPage bool `json:"hasNextPage"`
			} `json:"pageInfo"`
		} `json:"products"`
	} `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

// Products flattens the edge list.
func (r *ProductsResponse) Products() []Product {
	out := make([]Product, 0, len(r.Data.Products.Edges))
	for _, e := range r.Data.Products.Edges {
		out = append(out, e.Node)
	}
	return out
}

// Product represents a Shopify product node
type Product struct {
	ID               string   `json:"id"`
	LegacyResourceID string   `json:"legacyResourceId"`
	Title            string   `json:"title"`
	Handle           string   `json:"handle"`
	DescriptionHTML  string   `json:"descriptionHtml"`
	OnlineStoreURL   *string  `json:"onlineStoreUrl"`
	ProductType      string   `json:"productType"`
	Vendor           string   `json:"vendor"`
	Tags             []string `json:"tags"`
	TotalInventory   *int     `json:"totalInventory"`
	FeaturedImage    *Image   `json:"featuredImage"`
	Images           struct {
		Edges []struct {
			Node Image `json:"node"`
		} `json:"edges"`
	} `json:"images"`
	Variants struct {
		Edges []struct {
			Node Variant `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
	Collections struct {
		Edges []struct {
			Node struct {
				Title string `json:"title"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"collections"`
	Options []Option `json:"options"`
}

// Variant represents a product variant
type Variant struct {
	Price             string  `json:"price"`
	CompareAtPrice    *string `json:"compareAtPrice"`
	InventoryQuantity *int    `json:"inventoryQuantity"`
	AvailableForSale  bool    `json:"availableForSale"`
	InventoryPolicy   string  `json:"inventoryPolicy"`
	Sku               string  `json:"sku"`
}

// Image represents a product image
type Image struct {
	URL     string  `json:"url"`
	AltText *string `json:"altText"`
}

// Option represents a product option
type Option struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}
