package medusa

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
)

// ProductListParams filters and pages a product listing.
type ProductListParams struct {
	Limit         int
	Offset        int
	Q             string
	CategoryIDs   []string
	CollectionIDs []string
	Tags          []string
	Order         string
}

// Values encodes the params. List filters repeat their key.
func (p ProductListParams) Values() url.Values {
	q := pageQuery(p.Limit, p.Offset)
	if p.Q != "" {
		q.Set("q", p.Q)
	}
	for _, id := range p.CategoryIDs {
		q.Add("category_id", id)
	}
	for _, id := range p.CollectionIDs {
		q.Add("collection_id", id)
	}
	for _, tag := range p.Tags {
		q.Add("tags", tag)
	}
	if p.Order != "" {
		q.Set("order", p.Order)
	}
	return q
}

// ListProducts returns one page of products.
func (c *Client) ListProducts(ctx context.Context, params ProductListParams) (*domain.ProductList, error) {
	var resp domain.ProductList
	if err := c.do(ctx, "list_products", http.MethodGet, "/store/products", params.Values(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Products == nil {
		resp.Products = []domain.Product{}
	}
	return &resp, nil
}

// GetProduct fetches a product by id ("prod_..." values) or by handle.
func (c *Client) GetProduct(ctx context.Context, idOrHandle string) (*domain.Product, error) {
	if err := required("product id or handle", idOrHandle); err != nil {
		return nil, err
	}
	path := pathf("/store/products/handle/%s", idOrHandle)
	if strings.HasPrefix(idOrHandle, "prod_") {
		path = pathf("/store/products/%s", idOrHandle)
	}
	var resp struct {
		Product *domain.Product `json:"product"`
	}
	if err := c.do(ctx, "get_product", http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Product, nil
}

// SearchProducts runs a free-text product search.
func (c *Client) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	list, err := c.ListProducts(ctx, ProductListParams{Q: query})
	if err != nil {
		return nil, err
	}
	return list.Products, nil
}

// CategoryListParams pages a category listing, optionally under a parent.
type CategoryListParams struct {
	Limit            int
	Offset           int
	ParentCategoryID string
}

// ListCategories returns product categories.
func (c *Client) ListCategories(ctx context.Context, params CategoryListParams) ([]domain.Category, error) {
	q := pageQuery(params.Limit, params.Offset)
	if params.ParentCategoryID != "" {
		q.Set("parent_category_id", params.ParentCategoryID)
	}
	var resp struct {
		Categories []domain.Category `json:"product_categories"`
	}
	if err := c.do(ctx, "list_categories", http.MethodGet, "/store/product-categories", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// GetCategory fetches one category.
func (c *Client) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	if err := required("category id", id); err != nil {
		return nil, err
	}
	var resp struct {
		Category *domain.Category `json:"product_category"`
	}
	if err := c.do(ctx, "get_category", http.MethodGet, pathf("/store/product-categories/%s", id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Category, nil
}

// ListCollections returns product collections.
func (c *Client) ListCollections(ctx context.Context, limit, offset int) ([]domain.Collection, error) {
	var resp struct {
		Collections []domain.Collection `json:"collections"`
	}
	if err := c.do(ctx, "list_collections", http.MethodGet, "/store/collections", pageQuery(limit, offset), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Collections, nil
}

// GetCollection fetches one collection.
func (c *Client) GetCollection(ctx context.Context, id string) (*domain.Collection, error) {
	if err := required("collection id", id); err != nil {
		return nil, err
	}
	var resp struct {
		Collection *domain.Collection `json:"collection"`
	}
	if err := c.do(ctx, "get_collection", http.MethodGet, pathf("/store/collections/%s", id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Collection, nil
}

// ListRegions returns every region.
func (c *Client) ListRegions(ctx context.Context) ([]domain.Region, error) {
	var resp struct {
		Regions []domain.Region `json:"regions"`
	}
	if err := c.do(ctx, "list_regions", http.MethodGet, "/store/regions", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Regions, nil
}

// GetRegion fetches one region.
func (c *Client) GetRegion(ctx context.Context, id string) (*domain.Region, error) {
	if err := required("region id", id); err != nil {
		return nil, err
	}
	var resp struct {
		Region *domain.Region `json:"region"`
	}
	if err := c.do(ctx, "get_region", http.MethodGet, pathf("/store/regions/%s", id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Region, nil
}
