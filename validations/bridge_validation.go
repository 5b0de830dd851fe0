package validations

import (
	"context"
	"fmt"

	domainGateway "github.com/AzielCF/az-wabridge/domains/gateway"
	domainGroup "github.com/AzielCF/az-wabridge/domains/group"
	domainThread "github.com/AzielCF/az-wabridge/domains/thread"
	pkgError "github.com/AzielCF/az-wabridge/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func ValidateGatewayConfig(ctx context.Context, request domainGateway.Config) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.BaseURL, is.URL),
		validation.Field(&request.InstanceName, validation.Length(0, 100)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateRejectGroups(ctx context.Context, request domainGroup.RejectRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.IDs, validation.Required, validation.Each(validation.Required)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateOpenChat(ctx context.Context, request domainThread.OpenChatRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Phone, validation.When(request.ContactID == "",
			validation.Required.Error("No valid partner or phone number found to start WhatsApp chat."))),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateReply(ctx context.Context, request domainThread.ReplyRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Body, validation.When(len(request.Attachments) == 0,
			validation.Required.Error("body or attachments required"))),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	for i, a := range request.Attachments {
		err := validation.ValidateStructWithContext(ctx, &a,
			validation.Field(&a.FileName, validation.Required),
			validation.Field(&a.MimeType, validation.Required),
			validation.Field(&a.ContentBase64, validation.Required),
		)
		if err != nil {
			return pkgError.ValidationError(fmt.Sprintf("attachments[%d]: %s", i, err.Error()))
		}
	}
	return nil
}
