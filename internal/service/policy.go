package service

import "docvault/internal/model"

// Operation names reported by UnauthorizedError.
const (
	OpGetDocument    = "get document"
	OpUpdateDocument = "update document"
	OpDeleteDocument = "delete document"
	OpChangeStatus   = "change document status"
	OpListDocuments  = "list documents"
	OpCreateDocument = "create document"
	OpUploadFile     = "upload file"
	OpLatestVersion  = "read latest version"
	OpHistory        = "read version history"
	OpDownload       = "download file"
	OpDeleteVersion  = "delete file version"
)

// Authorize allows the owner of a resource and any admin. Anonymous callers are never owners.
func Authorize(operation, actingUsername, ownerUsername string, actingRole model.Role) error {
	if actingUsername != "" && actingUsername == ownerUsername {
		return nil
	}
	if actingRole.IsAdmin() {
		return nil
	}
	return &UnauthorizedError{Operation: operation}
}
