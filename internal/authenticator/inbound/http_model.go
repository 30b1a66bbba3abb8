package inbound

import (
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/twofa/internal/authenticator/usecase"
)

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

type CreateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Secret      string   `json:"secret"`
}

type UpdateRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

type ItemResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toItemResponse(it usecase.Item) ItemResponse {
	return ItemResponse{
		ID:          formatID(it.ID),
		Name:        it.Name,
		Description: it.Description,
		Tags:        it.Tags,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

type CreateResponse struct {
	ItemResponse
}

func (CreateResponse) StatusCode() int { return http.StatusCreated }

func (CreateResponse) Message() string { return "authenticator created" }

type ListResponse struct {
	Authenticators []ItemResponse `json:"authenticators"`
	// meta
	total int64
	take  int
	skip  int
}

func (r ListResponse) Meta() map[string]any {
	return map[string]any{
		"total": r.total,
		"take":  r.take,
		"skip":  r.skip,
	}
}

type DetailResponse struct {
	ItemResponse
	Secret string `json:"secret"`
}

type DeleteResponse struct{}

func (DeleteResponse) Message() string { return "authenticator deleted" }

type CodeResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code" example:"492039"`
	Remaining int    `json:"remaining" example:"17"`
	Period    uint   `json:"period" example:"30"`
	Step      uint64 `json:"step"`
}

func toCodeResponse(c usecase.CodeOutput) CodeResponse {
	return CodeResponse{
		ID:        formatID(c.ID),
		Name:      c.Name,
		Code:      c.Code,
		Remaining: c.Remaining,
		Period:    c.Period,
		Step:      c.Step,
	}
}

type CodesResponse struct {
	Remaining int            `json:"remaining"`
	Period    uint           `json:"period"`
	Step      uint64         `json:"step"`
	Items     []CodeResponse `json:"items"`
}

type URIResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri" example:"otpauth://totp/2FA%20Authenticator:GitHub?secret=JBSWY3DPEHPK3PXP&issuer=2FA%20Authenticator"`
}

type ImportURIRequest struct {
	URI         string   `json:"uri"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type GenerateSecretRequest struct {
	Account string `json:"account"`
}

type GenerateSecretResponse struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
	QR     string `json:"qr" example:"data:image/png;base64,..."`
}

type ImportEntryRequest struct {
	Name        string   `json:"name"`
	Secret      string   `json:"secret"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type ImportErrorResponse struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type BulkImportResponse struct {
	Success  int                   `json:"success"`
	Failure  int                   `json:"failure"`
	Errors   []ImportErrorResponse `json:"errors"`
	replayed bool
}

func toBulkImportResponse(out *usecase.BulkImportOutput) BulkImportResponse {
	return BulkImportResponse{
		Success: out.Success,
		Failure: out.Failure,
		Errors: lo.Map(out.Errors, func(e usecase.ImportError, _ int) ImportErrorResponse {
			return ImportErrorResponse{Index: e.Index, Reason: e.Reason}
		}),
		replayed: out.Replayed,
	}
}

func (b BulkImportResponse) Message() string {
	if b.replayed {
		return "import already processed"
	}
	return "import finished"
}

func (b BulkImportResponse) Meta() map[string]any {
	return map[string]any{"replayed": b.replayed}
}

type UploadedBackupResponse struct {
	Filename  string    `json:"filename"`
	Count     int       `json:"count"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (UploadedBackupResponse) Message() string { return "backup uploaded" }

type BackupsResponse struct {
	Backups []BackupResponse `json:"backups"`
}

type BackupResponse struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CodeEvent struct {
	At        time.Time        `json:"at"`
	Remaining int              `json:"remaining"`
	Frames    []CodeFrameEvent `json:"frames"`
	Error     string           `json:"error,omitempty"`
}

type CodeFrameEvent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Remaining int    `json:"remaining"`
	Step      uint64 `json:"step"`
	Error     string `json:"error,omitempty"`
}
