package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/pets/api/transport"
	"github.com/fastygo/pets/pkg/httpcontext"
	authUC "github.com/fastygo/pets/usecase/auth"
)

type UserHandler struct {
	baseHandler
	uc *authUC.UseCase
}

func NewUserHandler(uc *authUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Register a user
// @Tags users
// @Router /api/v1/users [put]
func (h *UserHandler) Register(ctx *fasthttp.RequestCtx) {
	var req transport.RegisterUserRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.Register(stdCtx, authUC.RegisterInput{
		ID:       req.ID,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, user)
}

// @Summary Log in with email or username
// @Tags users
// @Router /api/v1/users/login [post]
func (h *UserHandler) Login(ctx *fasthttp.RequestCtx) {
	var req transport.LoginRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.Login(stdCtx, authUC.LoginInput{Identifier: req.Login(), Password: req.Password})
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}

// @Summary Extend the current session
// @Tags users
// @Router /api/v1/users/refresh [post]
func (h *UserHandler) Refresh(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.Refresh(stdCtx, httpcontext.SessionID(ctx))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}

// @Summary Revoke the current session
// @Tags users
// @Router /api/v1/users/logout [post]
func (h *UserHandler) Logout(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if sid := httpcontext.SessionID(ctx); sid != "" {
		if err := h.uc.Logout(stdCtx, sid); err != nil {
			h.respondError(stdCtx, ctx, err)
			return
		}
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary Current user
// @Tags users
// @Router /api/v1/users/me [get]
func (h *UserHandler) Me(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.Me(stdCtx, httpcontext.UserID(ctx))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}
