package inbound

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/twofa/internal/authenticator/usecase"
	"github.com/shandysiswandi/twofa/internal/pkg/countdown"
	"github.com/shandysiswandi/twofa/internal/pkg/router"
)

type uc interface {
	Create(ctx context.Context, in usecase.CreateInput) (*usecase.Item, error)
	List(ctx context.Context, in usecase.ListInput) (*usecase.ListOutput, error)
	Detail(ctx context.Context, id int64) (*usecase.DetailOutput, error)
	Update(ctx context.Context, in usecase.UpdateInput) (*usecase.Item, error)
	Delete(ctx context.Context, id int64) error

	Code(ctx context.Context, id int64) (*usecase.CodeOutput, error)
	Codes(ctx context.Context) (*usecase.CodesOutput, error)
	Stream(ctx context.Context, in usecase.StreamInput, emit countdown.Emit) error

	ExportURI(ctx context.Context, id int64) (*usecase.ExportURIOutput, error)
	ExportQR(ctx context.Context, id int64) (*usecase.ExportQROutput, error)
	ImportURI(ctx context.Context, in usecase.ImportURIInput) (*usecase.Item, error)
	GenerateSecret(ctx context.Context, in usecase.GenerateSecretInput) (*usecase.GenerateSecretOutput, error)

	BulkImport(ctx context.Context, in usecase.BulkImportInput) (*usecase.BulkImportOutput, error)
	BulkExport(ctx context.Context, in usecase.BulkExportInput) (*usecase.BulkExportOutput, error)
	ListBackups(ctx context.Context) ([]usecase.Backup, error)
	RestoreBackup(ctx context.Context, in usecase.RestoreBackupInput) (*usecase.BulkImportOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/authenticators", end.List, r.Authorize("authenticator", "read"))
	r.POST("/api/v1/authenticators", end.Create, r.Authorize("authenticator", "create"))
	r.GET("/api/v1/authenticators/:id", end.Detail, r.Authorize("authenticator", "read"))
	r.PATCH("/api/v1/authenticators/:id", end.Update, r.Authorize("authenticator", "update"))
	r.DELETE("/api/v1/authenticators/:id", end.Delete, r.Authorize("authenticator", "delete"))
	r.GET("/api/v1/authenticators/:id/code", end.Code, r.Authorize("authenticator", "read"))
	r.GET("/api/v1/authenticators/:id/uri", end.ExportURI, r.Authorize("authenticator", "export"))
	r.GET("/api/v1/authenticators/:id/qr", end.ExportQR, r.Authorize("authenticator", "export"))

	r.GET("/api/v1/authenticators-codes", end.Codes, r.Authorize("authenticator", "read"))
	r.GETRaw("/api/v1/authenticators-stream", http.HandlerFunc(end.StreamCodes), r.Authorize("authenticator", "read"))
	r.POST("/api/v1/authenticators-secret", end.GenerateSecret, r.Authorize("authenticator", "create"))
	r.POST("/api/v1/authenticators-import", end.BulkImport, r.Authorize("authenticator", "import"))
	r.POST("/api/v1/authenticators-import-uri", end.ImportURI, r.Authorize("authenticator", "import"))
	r.GET("/api/v1/authenticators-export", end.BulkExport, r.Authorize("authenticator", "export"))
	r.GET("/api/v1/authenticators-backups", end.ListBackups, r.Authorize("authenticator", "export"))
	r.POST("/api/v1/authenticators-backups/:filename/restore", end.RestoreBackup, r.Authorize("authenticator", "import"))
}
