// Package dto provides data transfer objects for message HTTP requests and responses.
package dto

import (
	validation "github.com/jellydator/validation"
)

// MaxPlaintextLength bounds a message body in bytes.
const MaxPlaintextLength = 64 * 1024

// SendMessageRequest contains the body of a text message.
type SendMessageRequest struct {
	Plaintext string `json:"plaintext"`
}

// Validate checks if the send message request is valid. Emptiness is decided by the use
// case, which also accepts attachment-only messages.
func (r *SendMessageRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Plaintext, validation.Length(0, MaxPlaintextLength)),
	)
}
