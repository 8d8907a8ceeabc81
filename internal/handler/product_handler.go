package handler

import (
	"net/http"

	"bakery/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /products の公開API
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開商品のルートを登録。固定パスは /:id より先に
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/products")
	g.GET("", h.list)
	g.GET("/featured", h.featured)
	g.GET("/search", h.search)
	g.GET("/category/:category", h.byCategory)
	g.GET("/:id", h.detail)
}

func (h *ProductHandler) list(c echo.Context) error {
	q := newQueryReader(c)
	in := usecase.ListProductsInput{
		Page:     q.integer("page"),
		Limit:    q.integer("limit"),
		Category: q.str("category"),
		MinPrice: q.decimalPtr("minPrice"),
		MaxPrice: q.decimalPtr("maxPrice"),
		Search:   q.str("search"),
		Sort:     q.str("sort"),
		Order:    q.str("order"),
	}
	if err := q.err(); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	p, err := h.uc.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) byCategory(c echo.Context) error {
	q := newQueryReader(c)
	limit := q.integer("limit")
	if err := q.err(); err != nil {
		return writeError(c, err)
	}

	items, err := h.uc.ListByCategory(c.Request().Context(), c.Param("category"), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ProductHandler) featured(c echo.Context) error {
	q := newQueryReader(c)
	limit := q.integer("limit")
	if err := q.err(); err != nil {
		return writeError(c, err)
	}

	items, err := h.uc.ListFeatured(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ProductHandler) search(c echo.Context) error {
	q := newQueryReader(c)
	term := q.str("q")
	limit := q.integer("limit")
	if err := q.err(); err != nil {
		return writeError(c, err)
	}

	items, err := h.uc.Search(c.Request().Context(), term, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}
