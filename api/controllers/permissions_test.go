package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	internalpermissions "github.com/pharmadesk/pharmadesk-backend/internal/permissions"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	pkgpermissions "github.com/pharmadesk/pharmadesk-backend/pkg/permissions"
)

type fixedAccessResolver struct {
	access internalpermissions.Access
}

func (f fixedAccessResolver) Resolve(_ context.Context, _, _ uuid.UUID) internalpermissions.Access {
	return f.access
}

func TestPermissionCatalogListsEverything(t *testing.T) {
	handler := PermissionCatalog(nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/permissions/catalog", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var envelope struct {
		Data catalogResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data.Permissions) != pkgpermissions.Count() {
		t.Fatalf("expected %d catalog entries, got %d", pkgpermissions.Count(), len(envelope.Data.Permissions))
	}
	if len(envelope.Data.Templates) != 4 {
		t.Fatalf("expected 4 templates, got %d", len(envelope.Data.Templates))
	}
}

func TestMyPermissionsStaffSet(t *testing.T) {
	resolver := fixedAccessResolver{access: internalpermissions.Access{
		Role: enums.StaffRoleStaff,
		Keys: map[pkgpermissions.Key]struct{}{pkgpermissions.KeyViewOwnSales: {}},
	}}
	handler := MyPermissions(resolver, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(t, http.MethodGet, "/api/v1/permissions/me", nil, ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data myPermissionsResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Role != "staff" || len(envelope.Data.Permissions) != 1 {
		t.Fatalf("unexpected payload: %+v", envelope.Data)
	}
	if envelope.Data.Description != "Cashier" {
		t.Fatalf("expected Cashier description, got %q", envelope.Data.Description)
	}
}

func TestMyPermissionsUnauthenticated(t *testing.T) {
	handler := MyPermissions(fixedAccessResolver{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/permissions/me", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
