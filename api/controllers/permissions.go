package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/pharmadesk/pharmadesk-backend/api/middleware"
	"github.com/pharmadesk/pharmadesk-backend/api/responses"
	internalpermissions "github.com/pharmadesk/pharmadesk-backend/internal/permissions"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
	pkgpermissions "github.com/pharmadesk/pharmadesk-backend/pkg/permissions"
)

type accessResolver interface {
	Resolve(ctx context.Context, userID, pharmacyID uuid.UUID) internalpermissions.Access
}

type catalogEntryResponse struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
}

type templateResponse struct {
	Name  string   `json:"name"`
	Label string   `json:"label"`
	Keys  []string `json:"keys"`
}

type catalogResponse struct {
	Permissions []catalogEntryResponse `json:"permissions"`
	Templates   []templateResponse     `json:"templates"`
}

type myPermissionsResponse struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Description string   `json:"description"`
}

// PermissionCatalog returns the static catalog plus the role templates.
func PermissionCatalog(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := pkgpermissions.AllEntries()
		payload := catalogResponse{
			Permissions: make([]catalogEntryResponse, 0, len(entries)),
			Templates:   make([]templateResponse, 0),
		}
		for _, entry := range entries {
			payload.Permissions = append(payload.Permissions, catalogEntryResponse{
				Key:         string(entry.Key),
				Label:       entry.Label,
				Description: entry.Description,
				Category:    string(entry.Category),
			})
		}
		for _, tpl := range pkgpermissions.Templates() {
			keys := make([]string, 0, len(tpl.Keys))
			for _, key := range tpl.Keys {
				keys = append(keys, string(key))
			}
			payload.Templates = append(payload.Templates, templateResponse{
				Name:  tpl.Name,
				Label: tpl.Label,
				Keys:  keys,
			})
		}
		responses.WriteSuccess(w, payload)
	}
}

// MyPermissions returns the caller's effective permission set.
func MyPermissions(resolver accessResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "permission resolver unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		pharmacyID, err := uuid.Parse(middleware.PharmacyIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "pharmacy context missing"))
			return
		}

		access := resolver.Resolve(r.Context(), userID, pharmacyID)
		keys := access.KeyList()
		description := pkgpermissions.DescribeGrantSet(keys)
		if access.Role.IsPrivileged() {
			description = "Full access"
		}
		payload := myPermissionsResponse{
			Role:        string(access.Role),
			Permissions: make([]string, 0, len(keys)),
			Description: description,
		}
		for _, key := range keys {
			payload.Permissions = append(payload.Permissions, string(key))
		}
		responses.WriteSuccess(w, payload)
	}
}
