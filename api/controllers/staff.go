package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pharmadesk/pharmadesk-backend/api/middleware"
	"github.com/pharmadesk/pharmadesk-backend/api/responses"
	"github.com/pharmadesk/pharmadesk-backend/api/validators"
	"github.com/pharmadesk/pharmadesk-backend/internal/staff"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
	pkgpagination "github.com/pharmadesk/pharmadesk-backend/pkg/pagination"
	"github.com/pharmadesk/pharmadesk-backend/pkg/types"
)

func actorFromContext(r *http.Request) (staff.Actor, error) {
	userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return staff.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	pharmacyID, err := uuid.Parse(middleware.PharmacyIDFromContext(r.Context()))
	if err != nil {
		return staff.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "pharmacy context missing")
	}
	return staff.Actor{UserID: userID, PharmacyID: pharmacyID}, nil
}

func staffIDFromURL(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "staffID"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid staff id")
	}
	return id, nil
}

// StaffList returns one page of the pharmacy's staff.
func StaffList(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pkgpagination.DefaultLimit, 1, pkgpagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListStaff(r.Context(), actor, staff.ListParams{
			Params: pkgpagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// StaffGet returns one staff row with the joined profile.
func StaffGet(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		staffID, err := staffIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetStaff(r.Context(), actor, staffID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type staffInviteRequest struct {
	Email       string             `json:"email" validate:"required,email"`
	FirstName   string             `json:"first_name" validate:"required"`
	LastName    string             `json:"last_name" validate:"required"`
	Phone       *string            `json:"phone"`
	Role        string             `json:"role" validate:"required"`
	BranchID    types.NullableUUID `json:"branch_id"`
	Permissions []string           `json:"permissions"`
}

// StaffInvite creates a user plus their staff record and returns the temp
// password once.
func StaffInvite(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload staffInviteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := enums.ParseStaffRole(strings.TrimSpace(payload.Role))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid role"))
			return
		}

		var phone *string
		if payload.Phone != nil {
			cleaned := validators.SanitizeString(*payload.Phone, 32)
			phone = &cleaned
		}

		result, err := svc.InviteStaff(r.Context(), actor, staff.InviteStaffInput{
			Email:       payload.Email,
			FirstName:   validators.SanitizeString(payload.FirstName, 100),
			LastName:    validators.SanitizeString(payload.LastName, 100),
			Phone:       phone,
			Role:        role,
			BranchID:    payload.BranchID.Value,
			Permissions: payload.Permissions,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type staffRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// StaffUpdateRole changes the record's role.
func StaffUpdateRole(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		staffID, err := staffIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload staffRoleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := enums.ParseStaffRole(strings.TrimSpace(payload.Role))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid role"))
			return
		}

		result, err := svc.UpdateStaffRole(r.Context(), actor, staffID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type staffBranchRequest struct {
	BranchID types.NullableUUID `json:"branch_id"`
}

// StaffUpdateBranch moves the record between branches; an explicit null
// clears the pin.
func StaffUpdateBranch(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		staffID, err := staffIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload staffBranchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !payload.BranchID.Valid {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "branch_id is required (use null to clear)"))
			return
		}

		result, err := svc.UpdateStaffBranch(r.Context(), actor, staffID, payload.BranchID.Value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// StaffToggleActive flips the record's active flag.
func StaffToggleActive(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		staffID, err := staffIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ToggleStaffActive(r.Context(), actor, staffID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// StaffPermissionsGet returns the record's persisted grant set.
func StaffPermissionsGet(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		staffID, err := staffIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetStaffPermissions(r.Context(), actor, staffID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type staffPermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required"`
}

// StaffPermissionsUpdate replaces the record's grant set.
func StaffPermissionsUpdate(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		staffID, err := staffIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload staffPermissionsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UpdateStaffPermissions(r.Context(), actor, staffID, payload.Permissions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// StaffResetPassword issues a temp password for the record's user.
func StaffResetPassword(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		staffID, err := staffIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tempPassword, err := svc.ResetStaffPassword(r.Context(), actor, staffID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"temp_password": tempPassword})
	}
}
