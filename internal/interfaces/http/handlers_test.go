package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/service"
	"github.com/garyjia/purchase-approval/internal/domain/approval"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	"github.com/garyjia/purchase-approval/internal/report"
)

// mockEngine implements service.LifecycleEngine with overridable behavior
type mockEngine struct {
	submitFunc     func(ctx context.Context, in service.SubmitInput) (*entity.Purchase, error)
	transitionFunc func(ctx context.Context, id string, role entity.Role, action approval.Action) (*entity.Purchase, error)
	correctFunc    func(ctx context.Context, id string, role entity.Role, edits service.FieldEdits) (*entity.Purchase, error)
	removeFunc     func(ctx context.Context, id string, role entity.Role) error
	getFunc        func(ctx context.Context, id string) (*entity.Purchase, error)
	listFunc       func(ctx context.Context, limit, offset int) ([]*entity.Purchase, error)
}

func (m *mockEngine) Submit(ctx context.Context, in service.SubmitInput) (*entity.Purchase, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, in)
	}
	return &entity.Purchase{ID: "p-1", Status: entity.StatusPending}, nil
}

func (m *mockEngine) Transition(ctx context.Context, id string, role entity.Role, action approval.Action) (*entity.Purchase, error) {
	if m.transitionFunc != nil {
		return m.transitionFunc(ctx, id, role, action)
	}
	return &entity.Purchase{ID: id, Status: entity.StatusFinanceApproved}, nil
}

func (m *mockEngine) Correct(ctx context.Context, id string, role entity.Role, edits service.FieldEdits) (*entity.Purchase, error) {
	if m.correctFunc != nil {
		return m.correctFunc(ctx, id, role, edits)
	}
	return &entity.Purchase{ID: id, Status: entity.StatusPending}, nil
}

func (m *mockEngine) Remove(ctx context.Context, id string, role entity.Role) error {
	if m.removeFunc != nil {
		return m.removeFunc(ctx, id, role)
	}
	return nil
}

func (m *mockEngine) Get(ctx context.Context, id string) (*entity.Purchase, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &entity.Purchase{ID: id, Status: entity.StatusPending}, nil
}

func (m *mockEngine) ListByRecency(ctx context.Context, limit, offset int) ([]*entity.Purchase, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, limit, offset)
	}
	return []*entity.Purchase{}, nil
}

type testLogger struct{}

func (testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (testLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestServer(engine service.LifecycleEngine) *Server {
	zapLogger, _ := zap.NewDevelopment()
	return NewServer(DefaultServerConfig(), engine, report.NewExporter(zapLogger), testLogger{})
}

func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(&mockEngine{})

	w := doRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func submissionForm(t *testing.T, withFile bool) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"uploader_name":    "Asha",
		"vendor_name":      "Acme Supplies",
		"purpose":          "Procurement",
		"amount":           "15000",
		"hub":              "mumbai",
		"bill_type":        "quantum",
		"payment_sequence": "payment_first",
		"payment_date":     "2025-06-01",
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withFile {
		fw, err := mw.CreateFormFile("bill", "bill.pdf")
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF-1.4"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestSubmitPurchase(t *testing.T) {
	t.Run("accepts a multipart submission with a bill", func(t *testing.T) {
		var captured service.SubmitInput
		engine := &mockEngine{
			submitFunc: func(ctx context.Context, in service.SubmitInput) (*entity.Purchase, error) {
				captured = in
				return &entity.Purchase{ID: "p-1", Status: entity.StatusPending}, nil
			},
		}
		srv := newTestServer(engine)

		body, contentType := submissionForm(t, true)
		req := httptest.NewRequest(http.MethodPost, "/api/purchases", body)
		req.Header.Set("Content-Type", contentType)

		w := doRequest(srv, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "Asha", captured.UploaderName)
		assert.Equal(t, entity.PurposeProcurement, captured.Purpose)
		assert.Equal(t, 15000.0, captured.Amount)
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), captured.PaymentDate)
		require.NotNil(t, captured.Document)
		assert.Equal(t, "bill.pdf", captured.Document.Filename)
		assert.Equal(t, []byte("%PDF-1.4"), captured.Document.Content)
	})

	t.Run("passes a nil document when no file is attached", func(t *testing.T) {
		var captured service.SubmitInput
		engine := &mockEngine{
			submitFunc: func(ctx context.Context, in service.SubmitInput) (*entity.Purchase, error) {
				captured = in
				return &entity.Purchase{ID: "p-1"}, nil
			},
		}
		srv := newTestServer(engine)

		body, contentType := submissionForm(t, false)
		req := httptest.NewRequest(http.MethodPost, "/api/purchases", body)
		req.Header.Set("Content-Type", contentType)

		w := doRequest(srv, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Nil(t, captured.Document)
	})

	t.Run("maps validation failures to 400", func(t *testing.T) {
		engine := &mockEngine{
			submitFunc: func(ctx context.Context, in service.SubmitInput) (*entity.Purchase, error) {
				return nil, &entity.ValidationError{Field: "document", Reason: "a bill document is required"}
			},
		}
		srv := newTestServer(engine)

		body, contentType := submissionForm(t, false)
		req := httptest.NewRequest(http.MethodPost, "/api/purchases", body)
		req.Header.Set("Content-Type", contentType)

		w := doRequest(srv, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "document")
	})

	t.Run("rejects unsupported bill file types", func(t *testing.T) {
		srv := newTestServer(&mockEngine{})

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("payment_date", "2025-06-01"))
		fw, err := mw.CreateFormFile("bill", "bill.docx")
		require.NoError(t, err)
		_, err = fw.Write([]byte("word document"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/purchases", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		w := doRequest(srv, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeResponse(t, w).Error, "unsupported file type")
	})

	t.Run("rejects malformed payment dates", func(t *testing.T) {
		srv := newTestServer(&mockEngine{})

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("payment_date", "June 1st"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/purchases", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		w := doRequest(srv, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTransitionPurchase(t *testing.T) {
	t.Run("forwards role header and action", func(t *testing.T) {
		var gotRole entity.Role
		var gotAction approval.Action
		engine := &mockEngine{
			transitionFunc: func(ctx context.Context, id string, role entity.Role, action approval.Action) (*entity.Purchase, error) {
				gotRole = role
				gotAction = action
				return &entity.Purchase{ID: id, Status: entity.StatusDirectorApproved}, nil
			},
		}
		srv := newTestServer(engine)

		req := httptest.NewRequest(http.MethodPost, "/api/purchases/p-1/transition",
			strings.NewReader(`{"action":"director_approve"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(roleHeader, "director")

		w := doRequest(srv, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, entity.RoleDirector, gotRole)
		assert.Equal(t, approval.ActionDirectorApprove, gotAction)
	})

	t.Run("unknown role header degrades to none", func(t *testing.T) {
		var gotRole entity.Role
		engine := &mockEngine{
			transitionFunc: func(ctx context.Context, id string, role entity.Role, action approval.Action) (*entity.Purchase, error) {
				gotRole = role
				return &entity.Purchase{ID: id}, nil
			},
		}
		srv := newTestServer(engine)

		req := httptest.NewRequest(http.MethodPost, "/api/purchases/p-1/transition",
			strings.NewReader(`{"action":"reject"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(roleHeader, "superuser")

		doRequest(srv, req)
		assert.Equal(t, entity.RoleNone, gotRole)
	})

	t.Run("missing action body is rejected", func(t *testing.T) {
		srv := newTestServer(&mockEngine{})

		req := httptest.NewRequest(http.MethodPost, "/api/purchases/p-1/transition",
			strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")

		w := doRequest(srv, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("illegal transition maps to 422 with legal actions", func(t *testing.T) {
		engine := &mockEngine{
			transitionFunc: func(ctx context.Context, id string, role entity.Role, action approval.Action) (*entity.Purchase, error) {
				return nil, &service.IllegalTransitionError{
					ID:     id,
					Status: entity.StatusPending,
					Action: approval.ActionFinanceApprove,
					Legal:  []approval.Action{approval.ActionReject},
				}
			},
		}
		srv := newTestServer(engine)

		req := httptest.NewRequest(http.MethodPost, "/api/purchases/p-1/transition",
			strings.NewReader(`{"action":"finance_approve"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(roleHeader, "finance")

		w := doRequest(srv, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp struct {
			Success bool                  `json:"success"`
			Data    IllegalTransitionData `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "pending", resp.Data.Status)
		assert.Equal(t, []string{"reject"}, resp.Data.LegalActions)
	})

	t.Run("conflict maps to 409", func(t *testing.T) {
		engine := &mockEngine{
			transitionFunc: func(ctx context.Context, id string, role entity.Role, action approval.Action) (*entity.Purchase, error) {
				return nil, &service.ConflictError{ID: id}
			},
		}
		srv := newTestServer(engine)

		req := httptest.NewRequest(http.MethodPost, "/api/purchases/p-1/transition",
			strings.NewReader(`{"action":"reject"}`))
		req.Header.Set("Content-Type", "application/json")

		w := doRequest(srv, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing purchase maps to 404", func(t *testing.T) {
		engine := &mockEngine{
			transitionFunc: func(ctx context.Context, id string, role entity.Role, action approval.Action) (*entity.Purchase, error) {
				return nil, &service.NotFoundError{ID: id}
			},
		}
		srv := newTestServer(engine)

		req := httptest.NewRequest(http.MethodPost, "/api/purchases/ghost/transition",
			strings.NewReader(`{"action":"reject"}`))
		req.Header.Set("Content-Type", "application/json")

		w := doRequest(srv, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("dependency failure maps to 500", func(t *testing.T) {
		engine := &mockEngine{
			transitionFunc: func(ctx context.Context, id string, role entity.Role, action approval.Action) (*entity.Purchase, error) {
				return nil, &service.DependencyError{Op: "write transition", Err: errors.New("disk full")}
			},
		}
		srv := newTestServer(engine)

		req := httptest.NewRequest(http.MethodPost, "/api/purchases/p-1/transition",
			strings.NewReader(`{"action":"reject"}`))
		req.Header.Set("Content-Type", "application/json")

		w := doRequest(srv, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestCorrectPurchase(t *testing.T) {
	t.Run("forwards only the supplied edits", func(t *testing.T) {
		var gotEdits service.FieldEdits
		engine := &mockEngine{
			correctFunc: func(ctx context.Context, id string, role entity.Role, edits service.FieldEdits) (*entity.Purchase, error) {
				gotEdits = edits
				return &entity.Purchase{ID: id}, nil
			},
		}
		srv := newTestServer(engine)

		req := httptest.NewRequest(http.MethodPatch, "/api/purchases/p-1",
			strings.NewReader(`{"vendor_name":"Apex Traders","payment_date":"2025-06-10"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(roleHeader, "finance")

		w := doRequest(srv, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, gotEdits.VendorName)
		assert.Equal(t, "Apex Traders", *gotEdits.VendorName)
		require.NotNil(t, gotEdits.PaymentDate)
		assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), *gotEdits.PaymentDate)
		assert.Nil(t, gotEdits.UploaderName)
		assert.Nil(t, gotEdits.Purpose)
		assert.Nil(t, gotEdits.Hub)
		assert.Nil(t, gotEdits.BillType)
	})

	t.Run("rejects malformed payment dates", func(t *testing.T) {
		srv := newTestServer(&mockEngine{})

		req := httptest.NewRequest(http.MethodPatch, "/api/purchases/p-1",
			strings.NewReader(`{"payment_date":"soon"}`))
		req.Header.Set("Content-Type", "application/json")

		w := doRequest(srv, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRemovePurchase(t *testing.T) {
	var gotID string
	var gotRole entity.Role
	engine := &mockEngine{
		removeFunc: func(ctx context.Context, id string, role entity.Role) error {
			gotID = id
			gotRole = role
			return nil
		},
	}
	srv := newTestServer(engine)

	req := httptest.NewRequest(http.MethodDelete, "/api/purchases/p-1", nil)
	req.Header.Set(roleHeader, "director")

	w := doRequest(srv, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "p-1", gotID)
	assert.Equal(t, entity.RoleDirector, gotRole)
}

func TestListPurchases(t *testing.T) {
	var gotLimit, gotOffset int
	engine := &mockEngine{
		listFunc: func(ctx context.Context, limit, offset int) ([]*entity.Purchase, error) {
			gotLimit = limit
			gotOffset = offset
			return []*entity.Purchase{{ID: "p-1"}, {ID: "p-2"}}, nil
		},
	}
	srv := newTestServer(engine)

	w := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/purchases?limit=5&offset=10", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, 10, gotOffset)

	// Out-of-range parameters fall back to defaults
	doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/purchases?limit=9999&offset=-1", nil))
	assert.Equal(t, 20, gotLimit)
	assert.Equal(t, 0, gotOffset)
}

func TestExportPurchases(t *testing.T) {
	engine := &mockEngine{
		listFunc: func(ctx context.Context, limit, offset int) ([]*entity.Purchase, error) {
			return []*entity.Purchase{{
				ID:           "p-1",
				UploaderName: "Asha",
				VendorName:   "Acme Supplies",
				Purpose:      entity.PurposeProcurement,
				Amount:       15000,
				Hub:          entity.HubMumbai,
				BillType:     entity.BillTypeQuantum,
				PaymentDate:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
				Status:       entity.StatusPending,
				CreatedAt:    time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			}}, nil
		},
	}
	srv := newTestServer(engine)

	w := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/purchases/export", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "purchases-")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())
}
