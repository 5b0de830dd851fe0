package validations

import (
	"context"
	"testing"

	domainGateway "github.com/AzielCF/az-wabridge/domains/gateway"
	domainGroup "github.com/AzielCF/az-wabridge/domains/group"
	domainThread "github.com/AzielCF/az-wabridge/domains/thread"
	pkgError "github.com/AzielCF/az-wabridge/pkg/error"
	"github.com/stretchr/testify/assert"
)

func TestValidateGatewayConfig(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateGatewayConfig(ctx, domainGateway.Config{BaseURL: "https://evo.example.com", Token: "t"}))
	assert.NoError(t, ValidateGatewayConfig(ctx, domainGateway.Config{Token: "only-token"}))

	err := ValidateGatewayConfig(ctx, domainGateway.Config{BaseURL: "not a url"})
	assert.IsType(t, pkgError.ValidationError(""), err)
}

func TestValidateRejectGroups(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateRejectGroups(ctx, domainGroup.RejectRequest{IDs: []string{"a", "b"}}))
	assert.Error(t, ValidateRejectGroups(ctx, domainGroup.RejectRequest{}))
	assert.Error(t, ValidateRejectGroups(ctx, domainGroup.RejectRequest{IDs: []string{""}}))
}

func TestValidateOpenChat(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateOpenChat(ctx, domainThread.OpenChatRequest{ContactID: "c-1"}))
	assert.NoError(t, ValidateOpenChat(ctx, domainThread.OpenChatRequest{Phone: "+51 999"}))

	err := ValidateOpenChat(ctx, domainThread.OpenChatRequest{Name: "Ana"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "No valid partner or phone number found")
}

func TestValidateReply(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateReply(ctx, domainThread.ReplyRequest{Body: "hello"}))
	assert.NoError(t, ValidateReply(ctx, domainThread.ReplyRequest{Attachments: []domainThread.AttachmentRequest{
		{FileName: "a.pdf", MimeType: "application/pdf", ContentBase64: "AAAA"},
	}}))

	assert.Error(t, ValidateReply(ctx, domainThread.ReplyRequest{}))
	err := ValidateReply(ctx, domainThread.ReplyRequest{Attachments: []domainThread.AttachmentRequest{{FileName: "a.pdf"}}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "attachments[0]")
}
