package inbound

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/twofa/internal/authenticator/entity"
	"github.com/shandysiswandi/twofa/internal/authenticator/usecase"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/router"
)

const maxImportBytes = 4 << 20

// HTTPEndpoint exposes HTTP handlers for stored authenticators.
type HTTPEndpoint struct {
	uc uc
}

// List returns the caller's authenticators without secrets.
// @Summary List authenticators
// @Description Lists authenticators newest first. Secrets are never included.
// @Tags Authenticator
// @Security BearerAuth
// @Produce json
// @Param take query int false "Page size (1-100, default 100)"
// @Param skip query int false "Rows to skip"
// @Param tag query string false "Only entries carrying this tag"
// @Param search query string false "Match name or description"
// @Success 200 {object} router.successResponse{data=ListResponse} "Authenticators"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators [get]
func (h *HTTPEndpoint) List(r *router.Request) (any, error) {
	take, err := r.GetQueryInt("take")
	if err != nil {
		return nil, err
	}
	skip, err := r.GetQueryInt("skip")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.List(r.Context(), usecase.ListInput{
		Take:   take,
		Skip:   skip,
		Tag:    r.GetQuery("tag"),
		Search: r.GetQuery("search"),
	})
	if err != nil {
		return nil, err
	}

	return ListResponse{
		Authenticators: lo.Map(resp.Items, func(it usecase.Item, _ int) ItemResponse { return toItemResponse(it) }),
		total:          resp.Total,
		take:           resp.Take,
		skip:           resp.Skip,
	}, nil
}

// Create stores a new authenticator.
// @Summary Create authenticator
// @Tags Authenticator
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateRequest true "Authenticator payload"
// @Success 201 {object} router.successResponse{data=CreateResponse} "Created authenticator"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators [post]
func (h *HTTPEndpoint) Create(r *router.Request) (any, error) {
	var req CreateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Create(r.Context(), usecase.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Secret:      req.Secret,
	})
	if err != nil {
		return nil, err
	}

	return CreateResponse{ItemResponse: toItemResponse(*resp)}, nil
}

// Detail returns one authenticator including its secret.
// @Summary Get authenticator
// @Tags Authenticator
// @Security BearerAuth
// @Produce json
// @Param id path int true "Authenticator ID"
// @Success 200 {object} router.successResponse{data=DetailResponse} "Authenticator"
// @Failure 400 {object} router.errorResponse "Invalid id"
// @Failure 404 {object} router.errorResponse "Authenticator not found"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators/{id} [get]
func (h *HTTPEndpoint) Detail(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.Detail(r.Context(), id)
	if err != nil {
		return nil, err
	}

	return DetailResponse{ItemResponse: toItemResponse(resp.Item), Secret: resp.Secret}, nil
}

// Update changes the given fields of an authenticator.
// @Summary Update authenticator
// @Description Patch semantics: omitted fields are left as they are. The secret cannot be changed.
// @Tags Authenticator
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Authenticator ID"
// @Param request body UpdateRequest true "Fields to change"
// @Success 200 {object} router.successResponse{data=ItemResponse} "Updated authenticator"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 404 {object} router.errorResponse "Authenticator not found"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators/{id} [patch]
func (h *HTTPEndpoint) Update(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	var req UpdateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Update(r.Context(), usecase.UpdateInput{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		return nil, err
	}

	return toItemResponse(*resp), nil
}

// Delete removes an authenticator.
// @Summary Delete authenticator
// @Tags Authenticator
// @Security BearerAuth
// @Produce json
// @Param id path int true "Authenticator ID"
// @Success 200 {object} router.successResponse{data=DeleteResponse} "Deleted"
// @Failure 404 {object} router.errorResponse "Authenticator not found"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators/{id} [delete]
func (h *HTTPEndpoint) Delete(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	if err := h.uc.Delete(r.Context(), id); err != nil {
		return nil, err
	}

	return DeleteResponse{}, nil
}

// Code returns the current code of one authenticator.
// @Summary Current code
// @Tags Authenticator
// @Security BearerAuth
// @Produce json
// @Param id path int true "Authenticator ID"
// @Success 200 {object} router.successResponse{data=CodeResponse} "Current code"
// @Failure 404 {object} router.errorResponse "Authenticator not found"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators/{id}/code [get]
func (h *HTTPEndpoint) Code(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.Code(r.Context(), id)
	if err != nil {
		return nil, err
	}

	return toCodeResponse(*resp), nil
}

// Codes returns the current code of every authenticator of the caller.
// @Summary Current codes
// @Description Entries whose secret cannot be used show the code ERROR.
// @Tags Authenticator
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=CodesResponse} "Current codes"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators-codes [get]
func (h *HTTPEndpoint) Codes(r *router.Request) (any, error) {
	resp, err := h.uc.Codes(r.Context())
	if err != nil {
		return nil, err
	}

	return CodesResponse{
		Remaining: resp.Remaining,
		Period:    resp.Period,
		Step:      resp.Step,
		Items:     lo.Map(resp.Items, func(c usecase.CodeOutput, _ int) CodeResponse { return toCodeResponse(c) }),
	}, nil
}

// ExportURI returns the otpauth URI of one authenticator.
// @Summary Export as URI
// @Tags Authenticator
// @Security BearerAuth
// @Produce json
// @Param id path int true "Authenticator ID"
// @Success 200 {object} router.successResponse{data=URIResponse} "otpauth URI"
// @Failure 404 {object} router.errorResponse "Authenticator not found"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators/{id}/uri [get]
func (h *HTTPEndpoint) ExportURI(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.ExportURI(r.Context(), id)
	if err != nil {
		return nil, err
	}

	return URIResponse{ID: formatID(resp.ID), Name: resp.Name, URI: resp.URI}, nil
}

// ExportQR renders the otpauth URI of one authenticator as a PNG.
// @Summary Export as QR code
// @Tags Authenticator
// @Security BearerAuth
// @Produce png
// @Param id path int true "Authenticator ID"
// @Success 200 {file} file "QR code"
// @Failure 404 {object} router.errorResponse "Authenticator not found"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators/{id}/qr [get]
func (h *HTTPEndpoint) ExportQR(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.ExportQR(r.Context(), id)
	if err != nil {
		return nil, err
	}

	return &router.File{Name: resp.Name + ".png", ContentType: "image/png", Body: resp.PNG, Inline: true}, nil
}

// ImportURI stores the account of an otpauth URI.
// @Summary Import from URI
// @Tags Authenticator
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body ImportURIRequest true "otpauth URI"
// @Success 201 {object} router.successResponse{data=CreateResponse} "Created authenticator"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Invalid URI"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators-import-uri [post]
func (h *HTTPEndpoint) ImportURI(r *router.Request) (any, error) {
	var req ImportURIRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.ImportURI(r.Context(), usecase.ImportURIInput{
		URI:         req.URI,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		return nil, err
	}

	return CreateResponse{ItemResponse: toItemResponse(*resp)}, nil
}

// GenerateSecret returns a fresh secret with its enrolment URI and QR code.
// @Summary Generate secret
// @Description Nothing is stored; create the authenticator afterwards with the returned secret.
// @Tags Authenticator
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body GenerateSecretRequest true "Account label"
// @Success 200 {object} router.successResponse{data=GenerateSecretResponse} "Generated secret"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators-secret [post]
func (h *HTTPEndpoint) GenerateSecret(r *router.Request) (any, error) {
	var req GenerateSecretRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.GenerateSecret(r.Context(), usecase.GenerateSecretInput{Account: req.Account})
	if err != nil {
		return nil, err
	}

	return GenerateSecretResponse{Secret: resp.Secret, URI: resp.URI, QR: resp.QR}, nil
}

// BulkImport stores many authenticators at once.
// @Summary Bulk import
// @Description Accepts a JSON array, or a backup file uploaded as multipart field `file`. Invalid entries are reported by index and the rest are stored. Send Idempotency-Key to make retries safe.
// @Tags Authenticator
// @Security BearerAuth
// @Accept json,mpfd
// @Produce json
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body []ImportEntryRequest false "Entries"
// @Param file formData file false "Backup file"
// @Success 200 {object} router.successResponse{data=BulkImportResponse} "Import result"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 409 {object} router.errorResponse "Import with the same key in progress"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators-import [post]
func (h *HTTPEndpoint) BulkImport(r *router.Request) (any, error) {
	var req []ImportEntryRequest
	if r.IsMultipart() {
		file, err := r.StreamSingleFile("file")
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := file.Close(); err != nil {
				slog.WarnContext(r.Context(), "failed to close uploaded file", "error", err)
			}
		}()

		if err := decodeBackup(file, &req); err != nil {
			return nil, err
		}
	} else if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.BulkImport(r.Context(), usecase.BulkImportInput{
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Entries: lo.Map(req, func(e ImportEntryRequest, _ int) entity.BackupEntry {
			return entity.BackupEntry{Name: e.Name, Secret: e.Secret, Description: e.Description, Tags: e.Tags}
		}),
	})
	if err != nil {
		return nil, err
	}

	return toBulkImportResponse(resp), nil
}

func decodeBackup(r io.Reader, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r, maxImportBytes+1))
	if err != nil {
		return goerror.NewInvalidFormat()
	}
	if len(body) > maxImportBytes {
		return goerror.NewInvalidFormat("backup file is too large")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return goerror.NewInvalidFormat("backup file is not valid")
	}
	return nil
}

// BulkExport downloads every authenticator as a backup file.
// @Summary Bulk export
// @Description Returns 2fa-backup-YYYY-MM-DD.json. With upload=true the file is stored in object storage and a time limited link is returned instead.
// @Tags Authenticator
// @Security BearerAuth
// @Produce json
// @Param upload query bool false "Upload to object storage"
// @Success 200 {file} file "Backup file"
// @Success 200 {object} router.successResponse{data=UploadedBackupResponse} "Uploaded backup (upload=true)"
// @Failure 422 {object} router.errorResponse "Storage not configured"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators-export [get]
func (h *HTTPEndpoint) BulkExport(r *router.Request) (any, error) {
	upload := r.GetQueryBool("upload")

	resp, err := h.uc.BulkExport(r.Context(), usecase.BulkExportInput{Upload: upload})
	if err != nil {
		return nil, err
	}

	if upload {
		return UploadedBackupResponse{
			Filename:  resp.Filename,
			Count:     resp.Count,
			URL:       resp.URL,
			ExpiresAt: resp.ExpiresAt,
		}, nil
	}

	return &router.File{Name: resp.Filename, ContentType: resp.ContentType, Body: resp.Body}, nil
}

// ListBackups lists the caller's uploaded backups.
// @Summary List backups
// @Tags Authenticator
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=BackupsResponse} "Backups"
// @Failure 422 {object} router.errorResponse "Storage not configured"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators-backups [get]
func (h *HTTPEndpoint) ListBackups(r *router.Request) (any, error) {
	resp, err := h.uc.ListBackups(r.Context())
	if err != nil {
		return nil, err
	}

	return BackupsResponse{
		Backups: lo.Map(resp, func(b usecase.Backup, _ int) BackupResponse {
			return BackupResponse{Filename: b.Filename, Size: b.Size, UpdatedAt: b.UpdatedAt}
		}),
	}, nil
}

// RestoreBackup imports an uploaded backup.
// @Summary Restore backup
// @Description Entries are added next to the existing ones.
// @Tags Authenticator
// @Security BearerAuth
// @Produce json
// @Param filename path string true "Backup file name"
// @Success 200 {object} router.successResponse{data=BulkImportResponse} "Import result"
// @Failure 404 {object} router.errorResponse "Backup not found"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/authenticators-backups/{filename}/restore [post]
func (h *HTTPEndpoint) RestoreBackup(r *router.Request) (any, error) {
	resp, err := h.uc.RestoreBackup(r.Context(), usecase.RestoreBackupInput{Filename: r.GetParam("filename")})
	if err != nil {
		return nil, err
	}

	return toBulkImportResponse(resp), nil
}
