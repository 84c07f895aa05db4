package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/purchase-approval/internal/application/service"
	"github.com/garyjia/purchase-approval/internal/domain/approval"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	"github.com/garyjia/purchase-approval/internal/report"
	"github.com/garyjia/purchase-approval/pkg/utils"
)

// roleHeader identifies the approval tier the caller acts as. Authentication
// proper sits in front of this service.
const roleHeader = "X-Actor-Role"

const maxUploadSize = 20 << 20 // 20 MB

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine   service.LifecycleEngine
	exporter *report.Exporter
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(engine service.LifecycleEngine, exporter *report.Exporter, logger Logger) *Handlers {
	return &Handlers{
		engine:   engine,
		exporter: exporter,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SubmitPurchaseRequest represents the multipart form fields of a submission
type SubmitPurchaseRequest struct {
	UploaderName    string  `form:"uploader_name"`
	VendorName      string  `form:"vendor_name"`
	Purpose         string  `form:"purpose"`
	Amount          float64 `form:"amount"`
	Hub             string  `form:"hub"`
	BillType        string  `form:"bill_type"`
	PaymentSequence string  `form:"payment_sequence"`
	PaymentDate     string  `form:"payment_date"`
}

// TransitionRequest represents the body of a transition call
type TransitionRequest struct {
	Action string `json:"action" binding:"required"`
}

// CorrectRequest represents the body of a field correction call. Absent
// fields are left unchanged.
type CorrectRequest struct {
	UploaderName *string `json:"uploader_name"`
	VendorName   *string `json:"vendor_name"`
	Purpose      *string `json:"purpose"`
	Hub          *string `json:"hub"`
	BillType     *string `json:"bill_type"`
	PaymentDate  *string `json:"payment_date"`
}

// IllegalTransitionData explains a rejected transition in API responses
type IllegalTransitionData struct {
	Status       string   `json:"status"`
	Action       string   `json:"action"`
	LegalActions []string `json:"legal_actions"`
}

// ListPurchasesRequest represents query parameters for listing purchases
type ListPurchasesRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// SubmitPurchase handles POST /api/purchases
func (h *Handlers) SubmitPurchase(c *gin.Context) {
	var req SubmitPurchaseRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Error("Invalid submission form", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid submission form",
		})
		return
	}

	paymentDate, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "payment_date must be in YYYY-MM-DD format",
		})
		return
	}

	in := service.SubmitInput{
		UploaderName:    utils.SanitizeString(req.UploaderName),
		VendorName:      utils.SanitizeString(req.VendorName),
		Purpose:         entity.Purpose(req.Purpose),
		Amount:          req.Amount,
		Hub:             entity.Hub(req.Hub),
		BillType:        entity.BillType(req.BillType),
		PaymentSequence: entity.PaymentSequence(req.PaymentSequence),
		PaymentDate:     paymentDate,
	}

	if fileHeader, err := c.FormFile("bill"); err == nil {
		if err := utils.ValidateUploadFilename(fileHeader.Filename); err != nil {
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   err.Error(),
			})
			return
		}
		if fileHeader.Size > maxUploadSize {
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   fmt.Sprintf("bill document exceeds %d bytes", maxUploadSize),
			})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			h.logger.Error("Failed to open uploaded bill", "error", err)
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "failed to read bill document",
			})
			return
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			h.logger.Error("Failed to read uploaded bill", "error", err)
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "failed to read bill document",
			})
			return
		}

		in.Document = &service.Document{
			Filename: fileHeader.Filename,
			Content:  content,
		}
	}

	purchase, err := h.engine.Submit(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    purchase,
	})
}

// ListPurchases handles GET /api/purchases
func (h *Handlers) ListPurchases(c *gin.Context) {
	var req ListPurchasesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	// Set defaults
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	purchases, err := h.engine.ListByRecency(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    purchases,
	})
}

// GetPurchase handles GET /api/purchases/:id
func (h *Handlers) GetPurchase(c *gin.Context) {
	purchase, err := h.engine.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    purchase,
	})
}

// TransitionPurchase handles POST /api/purchases/:id/transition
func (h *Handlers) TransitionPurchase(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "action is required",
		})
		return
	}

	id := c.Param("id")
	role := entity.ParseRole(c.GetHeader(roleHeader))

	purchase, err := h.engine.Transition(c.Request.Context(), id, role, approval.Action(req.Action))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    purchase,
	})
}

// CorrectPurchase handles PATCH /api/purchases/:id
func (h *Handlers) CorrectPurchase(c *gin.Context) {
	var req CorrectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid correction body",
		})
		return
	}

	edits := service.FieldEdits{
		UploaderName: req.UploaderName,
		VendorName:   req.VendorName,
	}
	if req.Purpose != nil {
		p := entity.Purpose(*req.Purpose)
		edits.Purpose = &p
	}
	if req.Hub != nil {
		hub := entity.Hub(*req.Hub)
		edits.Hub = &hub
	}
	if req.BillType != nil {
		b := entity.BillType(*req.BillType)
		edits.BillType = &b
	}
	if req.PaymentDate != nil {
		d, err := time.Parse("2006-01-02", *req.PaymentDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "payment_date must be in YYYY-MM-DD format",
			})
			return
		}
		edits.PaymentDate = &d
	}

	id := c.Param("id")
	role := entity.ParseRole(c.GetHeader(roleHeader))

	purchase, err := h.engine.Correct(c.Request.Context(), id, role, edits)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    purchase,
	})
}

// RemovePurchase handles DELETE /api/purchases/:id
func (h *Handlers) RemovePurchase(c *gin.Context) {
	id := c.Param("id")
	role := entity.ParseRole(c.GetHeader(roleHeader))

	if err := h.engine.Remove(c.Request.Context(), id, role); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
	})
}

// ExportPurchases handles GET /api/purchases/export
func (h *Handlers) ExportPurchases(c *gin.Context) {
	var req ListPurchasesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 || req.Limit > 1000 {
		req.Limit = 1000
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	purchases, err := h.engine.ListByRecency(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("purchases-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := h.exporter.Write(c.Writer, purchases); err != nil {
		h.logger.Error("Failed to write export", "error", err)
		// headers are already out, nothing sensible left to send
		c.Abort()
	}
}

// respondError maps application errors to HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	var (
		validationErr *entity.ValidationError
		illegalErr    *service.IllegalTransitionError
		conflictErr   *service.ConflictError
		notFoundErr   *service.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   validationErr.Error(),
		})
	case errors.As(err, &illegalErr):
		legal := make([]string, 0, len(illegalErr.Legal))
		for _, a := range illegalErr.Legal {
			legal = append(legal, string(a))
		}
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   illegalErr.Error(),
			Data: IllegalTransitionData{
				Status:       string(illegalErr.Status),
				Action:       string(illegalErr.Action),
				LegalActions: legal,
			},
		})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Error:   conflictErr.Error(),
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   notFoundErr.Error(),
		})
	default:
		h.logger.Error("Request failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "internal error",
		})
	}
}
