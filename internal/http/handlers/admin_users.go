package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authkit/internal/domain/repository"
	apperr "github.com/dropDatabas3/authkit/internal/http/errors"
	mw "github.com/dropDatabas3/authkit/internal/http/middlewares"
	"github.com/dropDatabas3/authkit/internal/service/admin"
)

// AdminUsersHandler expone la administración de cuentas. El router
// aplica RequireAuth + RequireRole(admin, super_admin) al grupo.
type AdminUsersHandler struct {
	Svc admin.UsersService
}

func (h *AdminUsersHandler) Register(r chi.Router) {
	r.Get("/v1/admin/users", h.list)
	r.Get("/v1/admin/users/{id}", h.get)
	r.Patch("/v1/admin/users/{id}", h.update)
	r.Delete("/v1/admin/users/{id}", h.delete)
}

type listUsersResponse struct {
	Users []AccountResponse `json:"users"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

func (h *AdminUsersHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.ListAccountsFilter{
		Search: strings.TrimSpace(q.Get("search")),
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	if v := q.Get("role"); v != "" {
		role := repository.Role(v)
		if !role.Valid() {
			apperr.Write(w, apperr.ErrValidation.WithDetail("role desconocido"))
			return
		}
		f.Role = &role
	}
	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			apperr.Write(w, apperr.ErrValidation.WithDetail("active debe ser true o false"))
			return
		}
		f.Active = &active
	}

	accs, total, err := h.Svc.List(r.Context(), f)
	if err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}

	out := listUsersResponse{
		Users: make([]AccountResponse, 0, len(accs)),
		Total: total,
		Page:  maxInt(f.Page, 1),
		Limit: f.Limit,
	}
	for i := range accs {
		out.Users = append(out.Users, *toAccountResponse(&accs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminUsersHandler) get(w http.ResponseWriter, r *http.Request) {
	acc, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

type adminUpdateRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Role      *string `json:"role,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

func (h *AdminUsersHandler) update(w http.ResponseWriter, r *http.Request) {
	var req adminUpdateRequest
	if !readStrictJSON(w, r, &req) {
		return
	}

	in := repository.UpdateAccountInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Active:    req.Active,
	}
	if req.Role != nil {
		role := repository.Role(*req.Role)
		in.Role = &role
	}

	acc, err := h.Svc.Update(r.Context(), mw.GetAccountID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

func (h *AdminUsersHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.Svc.Delete(r.Context(), mw.GetAccountID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
