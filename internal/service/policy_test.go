package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name    string
		acting  string
		owner   string
		role    model.Role
		allowed bool
	}{
		{name: "owner", acting: "alice", owner: "alice", role: model.RoleUser, allowed: true},
		{name: "other user", acting: "bob", owner: "alice", role: model.RoleUser},
		{name: "admin", acting: "root", owner: "alice", role: model.RoleAdmin, allowed: true},
		{name: "anonymous", acting: "", owner: "", role: ""},
		{name: "case sensitive", acting: "Alice", owner: "alice", role: model.RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(OpDeleteDocument, tt.acting, tt.owner, tt.role)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			var ue *UnauthorizedError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, OpDeleteDocument, ue.Operation)
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "document d1 not found", (&NotFoundError{Resource: ResourceDocument, ID: "d1"}).Error())
	assert.Contains(t, (&NotFoundError{Resource: ResourceBlob, ID: "v1"}).Error(), "missing")
	assert.Equal(t, "username already exists", (&AlreadyExistsError{Field: "username"}).Error())

	cause := errors.New("disk full")
	ife := &InvalidFileError{Reason: ReasonIO, Err: cause}
	assert.ErrorIs(t, ife, cause)
	assert.Contains(t, ife.Error(), "disk full")
}

func TestValidateStruct(t *testing.T) {
	err := validateStruct(RegisterRequest{Username: "alice", Email: "not-an-email", Password: "pw1"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)

	err = validateStruct(CreateDocumentRequest{})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "title", ve.Field)
	assert.Equal(t, "is required", ve.Message)

	assert.NoError(t, validateStruct(RegisterRequest{Username: "alice", Email: "alice@x.com", Password: "pw1"}))
}
