package delivery

import (
	"errors"
	"net/http"
	"strconv"

	authdomain "mailpilot-backend/internal/auth/domain"
	"mailpilot-backend/internal/batch/domain"
	batchdto "mailpilot-backend/internal/batch/dto"
	"mailpilot-backend/internal/batch/usecase"

	"github.com/gin-gonic/gin"
)

type BatchHandler struct {
	batchUsecase usecase.BatchUsecase
}

func NewBatchHandler(batchUsecase usecase.BatchUsecase) *BatchHandler {
	return &BatchHandler{
		batchUsecase: batchUsecase,
	}
}

func currentUser(c *gin.Context) *authdomain.User {
	v, ok := c.Get("user")
	if !ok {
		return nil
	}
	user, _ := v.(*authdomain.User)
	return user
}

func (h *BatchHandler) CreateBatch(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req batchdto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batchID, err := h.batchUsecase.CreateBatch(user.ID, req.Operation, req.Options)
	if err != nil {
		respondBatchError(c, err)
		return
	}

	c.JSON(http.StatusCreated, batchdto.CreateBatchResponse{
		BatchID: batchID,
		Status:  string(domain.StatusCreated),
	})
}

func (h *BatchHandler) ExecuteBatch(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	batchID := c.Param("id")
	cred := &domain.Credential{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		Expiry:       user.TokenExpiry,
	}

	counters, err := h.batchUsecase.ExecuteBatch(c.Request.Context(), batchID, cred)
	if err != nil {
		respondBatchError(c, err)
		return
	}

	job, _ := h.batchUsecase.GetBatchStatus(user.ID, batchID)
	resp := batchdto.ExecuteBatchResponse{
		BatchID:  batchID,
		Status:   string(domain.StatusCompleted),
		Counters: *counters,
	}
	if job != nil {
		resp.Status = string(job.Status)
		resp.Errors = job.Errors
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BatchHandler) GetBatchStatus(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	job, err := h.batchUsecase.GetBatchStatus(user.ID, c.Param("id"))
	if err != nil {
		respondBatchError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

func (h *BatchHandler) ListBatchHistory(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	jobs, err := h.batchUsecase.ListBatchHistory(user.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, batchdto.BatchListResponse{
		Batches: jobs,
		Total:   len(jobs),
	})
}

func respondBatchError(c *gin.Context, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
	case errors.Is(err, domain.ErrRequiresReauth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "re-authentication required", "requires_reauth": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
