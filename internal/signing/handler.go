package signing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"inkporto/signing-portal/signing-portal-backend/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/documents/:id/signing")
	{
		docs.GET("/data-to-sign", h.DataToSign)
		docs.POST("/sign", h.Sign)
		docs.POST("/sign-additional-data", h.SignAdditionalData)
		docs.POST("/reject", h.Reject)
		docs.GET("/state", h.State)
		docs.GET("/history", h.History)
		docs.GET("/history/export", h.ExportHistory)
	}
}

func (h *Handler) DataToSign(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}
	set, err := h.service.DataToSign(c.Request.Context(), documentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": set})
}

type signBody struct {
	Envelopes []SignatureEnvelope `json:"signatures" binding:"required"`
}

func (h *Handler) Sign(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}
	user, ok := signerFromContext(c)
	if !ok {
		return
	}

	var body signBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Sign(c.Request.Context(), SignRequest{
		DocumentID: documentID,
		User:       user,
		Envelopes:  body.Envelopes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type additionalDataBody struct {
	Kind      SignatureKind `json:"kind" binding:"required"`
	Signature []byte        `json:"signature" binding:"required"`
	Data      []byte        `json:"data" binding:"required"`
}

func (h *Handler) SignAdditionalData(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}
	user, ok := signerFromContext(c)
	if !ok {
		return
	}

	var body additionalDataBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.SignAdditionalData(c.Request.Context(), AdditionalDataSignRequest{
		DocumentID: documentID,
		User:       user,
		Kind:       body.Kind,
		Signature:  body.Signature,
		Data:       body.Data,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type rejectBody struct {
	Reason string `json:"reason"`
}

func (h *Handler) Reject(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}
	user, ok := signerFromContext(c)
	if !ok {
		return
	}

	var body rejectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Reject(c.Request.Context(), documentID, user, body.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

func (h *Handler) State(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}
	state, err := h.service.State(c.Request.Context(), documentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) History(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}
	history, err := h.service.History(c.Request.Context(), documentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) ExportHistory(c *gin.Context) {
	documentID, ok := documentIDParam(c)
	if !ok {
		return
	}
	workbook, err := h.service.ExportHistory(c.Request.Context(), documentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=signing-history-"+documentID.String()+".xlsx")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

func documentIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return uuid.Nil, false
	}
	return id, true
}

func signerFromContext(c *gin.Context) (SignerProfile, bool) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return SignerProfile{}, false
	}
	return SignerProfile{
		UserID:       claims.UserID,
		TaxID:        claims.TaxID,
		CompanyTaxID: claims.CompanyTaxID,
		FirstName:    claims.FirstName,
		LastName:     claims.LastName,
		MiddleName:   claims.MiddleName,
	}, true
}

// writeError maps the signing error taxonomy onto HTTP statuses. Validation
// failures keep their structured detail; upstream failures do not leak
// internals beyond the provider name.
func writeError(c *gin.Context, err error) {
	var (
		notFound  *NotFoundError
		mismatch  *ContentMismatchError
		identity  *IdentityMismatchError
		order     *OrderViolationError
		integrity *IntegrityError
		invalid   *InvalidStateError
		upstream  *UpstreamError
	)
	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.Is(err, ErrAlreadySigned):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &mismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    "signed content mismatch",
			"file_id":  mismatch.FileID,
			"expected": mismatch.Expected,
			"actual":   mismatch.Actual,
		})
	case errors.As(err, &identity):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    "signer identity mismatch",
			"field":    identity.Field,
			"expected": identity.Expected,
			"actual":   identity.Actual,
		})
	case errors.As(err, &order):
		c.JSON(http.StatusConflict, gin.H{
			"error":    "signer order violated",
			"position": order.Position,
			"expected": order.ExpectedSignerID,
			"actual":   order.ActualSignerID,
		})
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": invalid.Error()})
	case errors.As(err, &integrity):
		c.JSON(http.StatusBadGateway, gin.H{"error": integrity.Error()})
	case errors.As(err, &upstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": upstream.Provider + " provider unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
