package handler

import (
	"net/http"

	"bakery/internal/domain/model"
	"bakery/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// 配送先・請求先・プロフィール住所で共通
type addressRequest struct {
	Name    string `json:"name" validate:"omitempty,max=255"`
	Street  string `json:"street" validate:"required,max=255"`
	City    string `json:"city" validate:"required,max=255"`
	State   string `json:"state" validate:"omitempty,max=100"`
	ZipCode string `json:"zipCode" validate:"required,max=20"`
	Country string `json:"country" validate:"omitempty,max=100"`
	Phone   string `json:"phone" validate:"omitempty,max=30"`
}

func (a addressRequest) toModel() model.Address {
	return model.Address{
		Name:    a.Name,
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		ZipCode: a.ZipCode,
		Country: a.Country,
		Phone:   a.Phone,
	}
}

type orderLineRequest struct {
	ProductID int64 `json:"product" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"min=1,max=1000"`
}

type OrderCreateRequest struct {
	Items           []orderLineRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress addressRequest     `json:"shippingAddress"`
	BillingAddress  *addressRequest    `json:"billingAddress"`
	PaymentMethod   string             `json:"paymentMethod" validate:"required,oneof=card cash paypal stripe"`
	Notes           string             `json:"notes" validate:"omitempty,max=500"`
}

type orderResponse struct {
	Message string              `json:"message"`
	Order   usecase.OrderOutput `json:"order"`
}

type paymentResponse struct {
	Message string `json:"message"`
	usecase.PaymentOutput
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, deps AuthDeps) {
	g := e.Group("/orders", deps.authenticated()...)

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.PUT("/:id/cancel", h.cancel)
	g.POST("/:id/payment", h.payment)
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req OrderCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	in := usecase.PlaceOrderInput{
		Items:           make([]usecase.OrderLineInput, 0, len(req.Items)),
		ShippingAddress: req.ShippingAddress.toModel(),
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, usecase.OrderLineInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	if req.BillingAddress != nil {
		b := req.BillingAddress.toModel()
		in.BillingAddress = &b
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, orderResponse{Message: "Order created successfully", Order: out})
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	q := newQueryReader(c)
	in := usecase.ListMyOrdersInput{
		Page:   q.integer("page"),
		Limit:  q.integer("limit"),
		Status: q.str("status"),
	}
	if err := q.err(); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.GetOrder(c.Request().Context(), userID, isAdminFromContext(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.CancelOrder(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orderResponse{Message: "Order cancelled successfully", Order: out})
}

func (h *OrderHandler) payment(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ProcessPayment(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, paymentResponse{Message: "Payment processed successfully", PaymentOutput: out})
}
