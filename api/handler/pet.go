package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/pets/api/transport"
	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/pkg/httpcontext"
	"github.com/fastygo/pets/repository"
	petUC "github.com/fastygo/pets/usecase/pet"
)

// PetHandler serves the owner's pets. The owner is always the caller.
type PetHandler struct {
	baseHandler
	uc *petUC.UseCase
}

func NewPetHandler(uc *petUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *PetHandler {
	return &PetHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Create a pet
// @Tags pets
// @Router /api/v1/pets [put]
func (h *PetHandler) Create(ctx *fasthttp.RequestCtx) {
	var req transport.CreatePetRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	pet, err := h.uc.Create(stdCtx, petUC.CreateInput{
		ID:      req.ID,
		Name:    req.Name,
		Type:    req.Type,
		OwnerID: httpcontext.UserID(ctx),
	})
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, pet)
}

// @Summary List my pets
// @Tags pets
// @Router /api/v1/pets [get]
func (h *PetHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	pets, err := h.uc.ListMine(stdCtx, httpcontext.UserID(ctx))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, pets)
}

// @Summary Get one of my pets
// @Tags pets
// @Router /api/v1/pets/{id} [get]
func (h *PetHandler) Get(ctx *fasthttp.RequestCtx) {
	h.command(ctx, h.uc.Get)
}

// @Summary Rename a pet
// @Tags pets
// @Router /api/v1/pets/{id}/name [patch]
func (h *PetHandler) Rename(ctx *fasthttp.RequestCtx) {
	var req transport.RenamePetRequest
	if !h.decode(ctx, &req) {
		return
	}
	h.command(ctx, func(c context.Context, id, owner string) (domain.PetWithOwner, error) {
		return h.uc.Rename(c, id, owner, req.Name)
	})
}

// @Router /api/v1/pets/{id}/feed [post]
func (h *PetHandler) Feed(ctx *fasthttp.RequestCtx) { h.command(ctx, h.uc.Feed) }

// @Router /api/v1/pets/{id}/play [post]
func (h *PetHandler) Play(ctx *fasthttp.RequestCtx) { h.command(ctx, h.uc.Play) }

// @Router /api/v1/pets/{id}/sleep [post]
func (h *PetHandler) Sleep(ctx *fasthttp.RequestCtx) { h.command(ctx, h.uc.Sleep) }

// @Summary Delete a pet
// @Tags pets
// @Router /api/v1/pets/{id} [delete]
func (h *PetHandler) Delete(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Delete(stdCtx, pathParam(ctx, "id"), httpcontext.UserID(ctx)); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary List every pet
// @Tags backoffice
// @Router /api/v1/backoffice/pets [get]
func (h *PetHandler) AdminList(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	args := ctx.QueryArgs()
	filter := repository.PetFilter{
		Limit:  args.GetUintOrZero("limit"),
		Offset: args.GetUintOrZero("offset"),
	}
	pets, err := h.uc.ListAll(stdCtx, filter)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewPage(pets, transport.Page{
		Count:  len(pets),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}))
}

// @Summary Delete any pet
// @Tags backoffice
// @Router /api/v1/backoffice/pets/{id} [delete]
func (h *PetHandler) AdminDelete(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.AdminDelete(stdCtx, pathParam(ctx, "id")); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

func (h *PetHandler) command(ctx *fasthttp.RequestCtx, fn func(c context.Context, id, owner string) (domain.PetWithOwner, error)) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	pet, err := fn(stdCtx, pathParam(ctx, "id"), httpcontext.UserID(ctx))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, pet)
}
