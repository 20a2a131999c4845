package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clanstats-api/internal/dto"
	"github.com/noah-isme/clanstats-api/internal/middleware"
	"github.com/noah-isme/clanstats-api/internal/models"
	appErrors "github.com/noah-isme/clanstats-api/pkg/errors"
	"github.com/noah-isme/clanstats-api/pkg/response"
)

type submissionService interface {
	GetDetail(ctx context.Context, submissionID string, query dto.DetailQuery) (*dto.SubmissionDetail, *models.Pagination, error)
	DeleteEntry(ctx context.Context, submissionID, entryID string, actor *models.JWTClaims) (*dto.DeleteResult, error)
	DeleteSubmission(ctx context.Context, submissionID string, actor *models.JWTClaims) (*dto.DeleteResult, error)
	EditEntry(ctx context.Context, submissionID string, req dto.EditEntryRequest, actor *models.JWTClaims) (*dto.EditEntryResult, error)
	AssignEntry(ctx context.Context, submissionID string, req dto.AssignEntryRequest, actor *models.JWTClaims) (*dto.AssignEntryResult, error)
	UpdateMetadata(ctx context.Context, submissionID string, req dto.MetadataRequest, actor *models.JWTClaims) (*dto.MetadataResult, error)
}

// SubmissionHandler exposes the review endpoints for one submission.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler builds a new handler.
func NewSubmissionHandler(service submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: service}
}

// Get godoc
// @Summary Get a page of staged entries with submission header and facets
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Param item_status query string false "pending, auto_matched, approved or rejected"
// @Param search query string false "Case-insensitive search"
// @Param unmatched query bool false "Only entries without an account"
// @Param player_name query string false "Player facet"
// @Param chest_name query string false "Chest facet"
// @Param source query string false "Source facet"
// @Param event_name query string false "Event facet"
// @Param sort_by query string false "Sort column"
// @Param sort_dir query string false "asc or desc"
// @Param skip_filter_options query bool false "Omit roster and filter options"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	id, err := requireUUID(c.Param("id"), "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.DetailQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}

	detail, pagination, err := h.service.GetDetail(c.Request.Context(), id, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	if detail.FilterOptions != nil {
		middleware.SetCacheHit(c, detail.FacetsCached)
	}
	response.JSON(c, http.StatusOK, detail, pagination, middleware.ExtractMeta(c))
}

// Delete godoc
// @Summary Delete one staged entry, or the whole submission when entryId is omitted
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Param entryId query string false "Staged entry ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [delete]
func (h *SubmissionHandler) Delete(c *gin.Context) {
	id, err := requireUUID(c.Param("id"), "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	claims := claimsFromContext(c)

	var result *dto.DeleteResult
	if raw, ok := c.GetQuery("entryId"); ok {
		entryID, err := requireUUID(raw, "entryId")
		if err != nil {
			response.Error(c, err)
			return
		}
		result, err = h.service.DeleteEntry(c.Request.Context(), id, entryID, claims)
		if err != nil {
			response.Error(c, err)
			return
		}
	} else {
		result, err = h.service.DeleteSubmission(c.Request.Context(), id, claims)
		if err != nil {
			response.Error(c, err)
			return
		}
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Patch godoc
// @Summary Edit entry fields, assign an entry's account, or update submission metadata
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.PatchSubmissionRequest true "Exactly one of the three patch shapes"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [patch]
func (h *SubmissionHandler) Patch(c *gin.Context) {
	id, err := requireUUID(c.Param("id"), "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.PatchSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission patch payload"))
		return
	}

	switch req.Kind() {
	case dto.PatchEditFields:
		h.editEntry(c, id, req)
	case dto.PatchAssignAccount:
		h.assignEntry(c, id, req)
	case dto.PatchMetadata:
		h.updateMetadata(c, id, req)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation,
			"body must contain exactly one of: entryId with editFields, entryId with matchGameAccountId, or referenceDate/linkedEventId"))
	}
}

func (h *SubmissionHandler) editEntry(c *gin.Context, submissionID string, req dto.PatchSubmissionRequest) {
	entryID, err := requireUUID(req.EntryID, "entryId")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.EditEntry(c.Request.Context(), submissionID, dto.EditEntryRequest{
		EntryID:    entryID,
		EditFields: req.EditFields,
	}, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func (h *SubmissionHandler) assignEntry(c *gin.Context, submissionID string, req dto.PatchSubmissionRequest) {
	entryID, err := requireUUID(req.EntryID, "entryId")
	if err != nil {
		response.Error(c, err)
		return
	}
	accountID := req.MatchGameAccountID.Value
	if accountID != nil {
		parsed, err := requireUUID(*accountID, "matchGameAccountId")
		if err != nil {
			response.Error(c, err)
			return
		}
		accountID = &parsed
	}
	result, err := h.service.AssignEntry(c.Request.Context(), submissionID, dto.AssignEntryRequest{
		EntryID:            entryID,
		MatchGameAccountID: accountID,
		SaveCorrection:     req.SaveCorrection,
	}, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func (h *SubmissionHandler) updateMetadata(c *gin.Context, submissionID string, req dto.PatchSubmissionRequest) {
	result, err := h.service.UpdateMetadata(c.Request.Context(), submissionID, dto.MetadataRequest{
		ReferenceDate: req.ReferenceDate,
		LinkedEventID: req.LinkedEventID,
	}, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.AddWarnings(c, result.Warnings...)
	response.JSON(c, http.StatusOK, result.Submission, nil, middleware.ExtractMeta(c))
}
