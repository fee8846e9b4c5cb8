package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pharmadesk/pharmadesk-backend/api/middleware"
	"github.com/pharmadesk/pharmadesk-backend/internal/staff"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
)

type stubStaffService struct {
	staff.Service

	inviteInput  staff.InviteStaffInput
	inviteResult *staff.InviteResult
	inviteErr    error

	roleArg    enums.StaffRole
	branchArg  *uuid.UUID
	updated    *staff.StaffDTO
	updateErr  error
	grantsArg  []string
	grantsDTO  *staff.GrantSetDTO
	listResult *staff.ListResult
}

func (s *stubStaffService) ListStaff(_ context.Context, _ staff.Actor, _ staff.ListParams) (*staff.ListResult, error) {
	return s.listResult, nil
}

func (s *stubStaffService) InviteStaff(_ context.Context, _ staff.Actor, input staff.InviteStaffInput) (*staff.InviteResult, error) {
	s.inviteInput = input
	return s.inviteResult, s.inviteErr
}

func (s *stubStaffService) UpdateStaffRole(_ context.Context, _ staff.Actor, _ uuid.UUID, role enums.StaffRole) (*staff.StaffDTO, error) {
	s.roleArg = role
	return s.updated, s.updateErr
}

func (s *stubStaffService) UpdateStaffBranch(_ context.Context, _ staff.Actor, _ uuid.UUID, branchID *uuid.UUID) (*staff.StaffDTO, error) {
	s.branchArg = branchID
	return s.updated, s.updateErr
}

func (s *stubStaffService) UpdateStaffPermissions(_ context.Context, _ staff.Actor, _ uuid.UUID, keys []string) (*staff.GrantSetDTO, error) {
	s.grantsArg = keys
	return s.grantsDTO, nil
}

func authedRequest(t *testing.T, method, target string, body []byte, staffID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithPharmacyID(ctx, uuid.NewString())
	if staffID != "" {
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("staffID", staffID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return req.WithContext(ctx)
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope
}

func TestStaffInviteCreated(t *testing.T) {
	svc := &stubStaffService{inviteResult: &staff.InviteResult{TempPassword: "temp1234"}}
	handler := StaffInvite(svc, nil)

	body := []byte(`{"email":"new@pharmacy.test","first_name":"Ana","last_name":"Reyes","role":"staff","permissions":["view_own_sales"]}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(t, http.MethodPost, "/api/v1/staff", body, ""))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.inviteInput.Role != enums.StaffRoleStaff {
		t.Fatalf("expected staff role passed through, got %q", svc.inviteInput.Role)
	}
	if len(svc.inviteInput.Permissions) != 1 {
		t.Fatalf("expected permissions passed through, got %v", svc.inviteInput.Permissions)
	}
}

func TestStaffInviteInvalidRole(t *testing.T) {
	handler := StaffInvite(&stubStaffService{}, nil)

	body := []byte(`{"email":"new@pharmacy.test","first_name":"Ana","last_name":"Reyes","role":"superadmin"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(t, http.MethodPost, "/api/v1/staff", body, ""))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStaffUpdateRolePassesParsedRole(t *testing.T) {
	svc := &stubStaffService{updated: &staff.StaffDTO{Role: enums.StaffRoleManager}}
	handler := StaffUpdateRole(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(t, http.MethodPatch, "/api/v1/staff/x/role", []byte(`{"role":"manager"}`), uuid.NewString()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.roleArg != enums.StaffRoleManager {
		t.Fatalf("expected manager, got %q", svc.roleArg)
	}
}

func TestStaffUpdateRoleBadStaffID(t *testing.T) {
	handler := StaffUpdateRole(&stubStaffService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(t, http.MethodPatch, "/api/v1/staff/x/role", []byte(`{"role":"manager"}`), "not-a-uuid"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStaffUpdateBranchNullClearsPin(t *testing.T) {
	branch := uuid.New()
	svc := &stubStaffService{updated: &staff.StaffDTO{}, branchArg: &branch}
	handler := StaffUpdateBranch(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(t, http.MethodPatch, "/api/v1/staff/x/branch", []byte(`{"branch_id":null}`), uuid.NewString()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.branchArg != nil {
		t.Fatal("expected nil branch passed through for explicit null")
	}
}

func TestStaffUpdateBranchMissingFieldRejected(t *testing.T) {
	handler := StaffUpdateBranch(&stubStaffService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(t, http.MethodPatch, "/api/v1/staff/x/branch", []byte(`{}`), uuid.NewString()))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStaffPermissionsUpdatePassesKeys(t *testing.T) {
	svc := &stubStaffService{grantsDTO: &staff.GrantSetDTO{Description: "Cashier"}}
	handler := StaffPermissionsUpdate(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(t, http.MethodPut, "/api/v1/staff/x/permissions", []byte(`{"permissions":["view_own_sales"]}`), uuid.NewString()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.grantsArg) != 1 || svc.grantsArg[0] != "view_own_sales" {
		t.Fatalf("expected keys passed through, got %v", svc.grantsArg)
	}
}

func TestStaffInviteServiceErrorMapped(t *testing.T) {
	svc := &stubStaffService{inviteErr: pkgerrors.New(pkgerrors.CodeForbidden, "not allowed")}
	handler := StaffInvite(svc, nil)

	body := []byte(`{"email":"new@pharmacy.test","first_name":"Ana","last_name":"Reyes","role":"staff"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(t, http.MethodPost, "/api/v1/staff", body, ""))

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
	envelope := decodeEnvelope(t, resp)
	if _, ok := envelope["error"]; !ok {
		t.Fatalf("expected error envelope, got %s", resp.Body.String())
	}
}

func TestStaffListUnauthenticated(t *testing.T) {
	handler := StaffList(&stubStaffService{listResult: &staff.ListResult{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/staff", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
