package domain

import (
	"github.com/tnptm/next-djchat/internal/errors"
)

// Message-specific error definitions.
var (
	// ErrEmptyMessage indicates a message with neither text nor attachment.
	ErrEmptyMessage = errors.Wrap(errors.ErrInvalidInput, "message plaintext is required")

	// ErrMessageNotFound indicates the message does not exist.
	ErrMessageNotFound = errors.Wrap(errors.ErrNotFound, "message not found")

	// ErrAttachmentNotFound indicates the attachment does not exist.
	ErrAttachmentNotFound = errors.Wrap(errors.ErrNotFound, "attachment not found")

	// ErrAttachmentTooLarge indicates an upload above the configured size limit.
	ErrAttachmentTooLarge = errors.Wrap(errors.ErrInvalidInput, "attachment exceeds maximum size")

	// ErrInvalidAttachment indicates an upload without a filename or with a negative size.
	ErrInvalidAttachment = errors.Wrap(errors.ErrInvalidInput, "invalid attachment")
)
