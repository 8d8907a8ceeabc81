package handler

import (
	"errors"
	"net/http"

	"bakery/internal/domain/model"
	"bakery/internal/usecase"
	auth "bakery/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	registerUC *auth.RegisterUserUsecase // 会員登録usecase
	loginUC    *auth.LoginUsecase        // ログインusecase
	profileUC  *auth.ProfileUsecase
}

// DIコンストラクタ
func NewAuthHandler(
	registerUC *auth.RegisterUserUsecase,
	loginUC *auth.LoginUsecase,
	profileUC *auth.ProfileUsecase,
) *AuthHandler {
	return &AuthHandler{
		registerUC: registerUC,
		loginUC:    loginUC,
		profileUC:  profileUC,
	}
}

// /auth/register のリクエストボディ。
type registerRequest struct {
	Name     string          `json:"name" validate:"required,min=2,max=100"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	Phone    string          `json:"phone" validate:"omitempty,max=30"`
	Address  *addressRequest `json:"address"`
}

// /auth/login のリクエストボディ。
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// /auth/profile のリクエストボディ。送られた項目だけ変える
type updateProfileRequest struct {
	Name    *string         `json:"name" validate:"omitempty,min=2,max=100"`
	Phone   *string         `json:"phone" validate:"omitempty,max=30"`
	Address *addressRequest `json:"address"`
}

type authResponse struct {
	Message   string     `json:"message"`
	Token     string     `json:"token"`
	ExpiresIn int        `json:"expiresIn"`
	User      model.User `json:"user"`
}

type userResponse struct {
	Message string     `json:"message,omitempty"`
	User    model.User `json:"user"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo, deps AuthDeps) {
	g := e.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)

	me := g.Group("", deps.authenticated()...)
	me.GET("/me", h.Me)
	me.PUT("/profile", h.UpdateProfile)
}

// RegisterはPOST /auth/registerのハンドラ
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	in := auth.RegisterUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	}
	if req.Address != nil {
		a := req.Address.toModel()
		in.Address = &a
	}

	out, err := h.registerUC.Execute(c.Request().Context(), in)
	if err != nil {
		return writeError(c, authError(err))
	}

	return c.JSON(http.StatusCreated, authResponse{
		Message:   "User registered successfully",
		Token:     out.Token.AccessToken,
		ExpiresIn: out.Token.ExpiresIn,
		User:      out.User,
	})
}

// LoginはPOST /auth/login のハンドラ。
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.loginUC.Execute(c.Request().Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, authError(err))
	}

	return c.JSON(http.StatusOK, authResponse{
		Message:   "Login successful",
		Token:     out.Token.AccessToken,
		ExpiresIn: out.Token.ExpiresIn,
		User:      out.User,
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	u, err := h.profileUC.Me(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, authError(err))
	}
	return c.JSON(http.StatusOK, userResponse{User: u})
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	in := auth.UpdateProfileInput{Name: req.Name, Phone: req.Phone}
	if req.Address != nil {
		a := req.Address.toModel()
		in.Address = &a
	}

	u, err := h.profileUC.UpdateProfile(c.Request().Context(), userID, in)
	if err != nil {
		return writeError(c, authError(err))
	}
	return c.JSON(http.StatusOK, userResponse{Message: "Profile updated successfully", User: u})
}

// authパッケージのエラーをHTTPに寄せる
func authError(err error) error {
	field := func(f, msg string) error {
		return usecase.NewValidationError(usecase.FieldError{Field: f, Message: msg})
	}

	switch {
	case errors.Is(err, auth.ErrNameTooShort):
		return field("name", "Name must be at least 2 characters")
	case errors.Is(err, auth.ErrInvalidEmailFormat):
		return field("email", "Please provide a valid email")
	case errors.Is(err, auth.ErrPasswordTooShort):
		return field("password", "Password must be at least 8 characters")
	case errors.Is(err, auth.ErrWeakPassword):
		return field("password", "Password is too common")
	case errors.Is(err, auth.ErrEmailAlreadyExists):
		return usecase.NewHTTPError(http.StatusConflict, "User already exists with this email")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return usecase.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, auth.ErrUserInactive):
		return usecase.NewHTTPError(http.StatusForbidden, "Account is deactivated")
	case errors.Is(err, auth.ErrUserNotFound):
		return usecase.NewHTTPError(http.StatusNotFound, "User not found")
	default:
		return err
	}
}
