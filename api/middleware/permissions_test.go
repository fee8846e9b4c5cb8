package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	internalpermissions "github.com/pharmadesk/pharmadesk-backend/internal/permissions"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	pkgpermissions "github.com/pharmadesk/pharmadesk-backend/pkg/permissions"
)

type fixedResolver struct {
	access internalpermissions.Access
}

func (f fixedResolver) Resolve(_ context.Context, _, _ uuid.UUID) internalpermissions.Access {
	return f.access
}

func permissionRequest(authed bool) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	if !authed {
		return req
	}
	ctx := WithUserID(req.Context(), uuid.NewString())
	ctx = WithPharmacyID(ctx, uuid.NewString())
	return req.WithContext(ctx)
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequirePermissionAllowsGrantedKey(t *testing.T) {
	resolver := fixedResolver{access: internalpermissions.Access{
		Role: enums.StaffRoleStaff,
		Keys: map[pkgpermissions.Key]struct{}{pkgpermissions.KeyViewReports: {}},
	}}

	var called bool
	handler := RequirePermission(resolver, pkgpermissions.KeyViewReports, nil)(okHandler(&called))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, permissionRequest(true))
	if resp.Code != http.StatusOK || !called {
		t.Fatalf("expected pass-through, got %d called=%v", resp.Code, called)
	}
}

func TestRequirePermissionDeniesMissingKey(t *testing.T) {
	resolver := fixedResolver{access: internalpermissions.Access{Role: enums.StaffRoleStaff}}

	var called bool
	handler := RequirePermission(resolver, pkgpermissions.KeyViewReports, nil)(okHandler(&called))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, permissionRequest(true))
	if resp.Code != http.StatusForbidden || called {
		t.Fatalf("expected 403, got %d called=%v", resp.Code, called)
	}
}

func TestRequirePermissionManagerBypass(t *testing.T) {
	resolver := fixedResolver{access: internalpermissions.Access{Role: enums.StaffRoleManager}}

	var called bool
	handler := RequirePermission(resolver, pkgpermissions.KeyManageSuppliers, nil)(okHandler(&called))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, permissionRequest(true))
	if resp.Code != http.StatusOK || !called {
		t.Fatalf("expected bypass, got %d called=%v", resp.Code, called)
	}
}

func TestRequirePermissionUnauthenticated(t *testing.T) {
	resolver := fixedResolver{access: internalpermissions.Access{Role: enums.StaffRoleOwner}}

	var called bool
	handler := RequirePermission(resolver, pkgpermissions.KeyViewDashboard, nil)(okHandler(&called))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, permissionRequest(false))
	if resp.Code != http.StatusUnauthorized || called {
		t.Fatalf("expected 401, got %d called=%v", resp.Code, called)
	}
}
