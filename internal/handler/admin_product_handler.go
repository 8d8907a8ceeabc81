package handler

import (
	"net/http"

	"bakery/internal/domain/model"
	"bakery/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// ProductCreateRequest は商品作成の入力
type ProductCreateRequest struct {
	Name        string           `json:"name" validate:"required,min=2,max=100"`
	Description string           `json:"description" validate:"required,min=10,max=1000"`
	Category    string           `json:"category" validate:"required,category"`
	Price       *decimal.Decimal `json:"price" validate:"required,gte=0"`
	Stock       *int64           `json:"stock" validate:"required,gte=0"`
	IsAvailable *bool            `json:"isAvailable"`
	ImageURL    string           `json:"imageUrl" validate:"omitempty,max=500"`
	Featured    bool             `json:"featured"`
}

// 部分更新。送られた項目だけ変える
type ProductUpdateRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string          `json:"description" validate:"omitempty,min=10,max=1000"`
	Category    *string          `json:"category" validate:"omitempty,category"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	Stock       *int64           `json:"stock" validate:"omitempty,gte=0"`
	IsAvailable *bool            `json:"isAvailable"`
	ImageURL    *string          `json:"imageUrl" validate:"omitempty,max=500"`
	Featured    *bool            `json:"featured"`
}

// InventoryUpdateRequest は在庫更新の入力です。
type InventoryUpdateRequest struct {
	Stock  *int64 `json:"stock" validate:"required,gte=0"`
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

type productResponse struct {
	Message string        `json:"message"`
	Product model.Product `json:"product"`
}

// /admin/products と /admin/inventory をまとめる
type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

// adminを登録
func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, deps AuthDeps) {
	admin := e.Group("/admin", deps.adminOnly()...)

	admin.GET("/products", h.listProducts)
	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)
	admin.PUT("/inventory/:product_id", h.updateInventory)
}

func (h *AdminProductHandler) listProducts(c echo.Context) error {
	q := newQueryReader(c)
	in := usecase.AdminListProductsInput{
		Page:     q.integer("page"),
		Limit:    q.integer("limit"),
		Category: q.str("category"),
		Search:   q.str("search"),
	}
	if err := q.err(); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AdminListProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	var req ProductCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	p, err := h.uc.AdminCreateProduct(
		c.Request().Context(),
		adminID,
		usecase.AdminCreateProductInput{
			Name:        req.Name,
			Description: req.Description,
			Category:    req.Category,
			Price:       *req.Price,
			Stock:       *req.Stock,
			IsAvailable: req.IsAvailable,
			ImageURL:    req.ImageURL,
			Featured:    req.Featured,
		},
	)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, productResponse{Message: "Product created successfully", Product: p})
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req ProductUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	p, err := h.uc.AdminUpdateProduct(
		c.Request().Context(),
		adminID,
		id,
		usecase.AdminUpdateProductInput{
			Name:        req.Name,
			Description: req.Description,
			Category:    req.Category,
			Price:       req.Price,
			Stock:       req.Stock,
			IsAvailable: req.IsAvailable,
			ImageURL:    req.ImageURL,
			Featured:    req.Featured,
		},
	)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, productResponse{Message: "Product updated successfully", Product: p})
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.uc.AdminDeleteProduct(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "Product deleted successfully"})
}

func (h *AdminProductHandler) updateInventory(c echo.Context) error {
	productID, err := parseIDParam(c, "product_id")
	if err != nil {
		return writeError(c, err)
	}

	var req InventoryUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	p, err := h.uc.AdminUpdateInventory(
		c.Request().Context(),
		adminID,
		productID,
		*req.Stock,
		req.Reason,
	)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, productResponse{Message: "Stock updated successfully", Product: p})
}
