// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/debugbot/lib/ref"
)

// DeliveryError is a structured delivery failure. Callers can use
// errors.As to extract it:
//
//	var deliveryErr *DeliveryError
//	if errors.As(err, &deliveryErr) {
//	    if deliveryErr.Code == ErrCodeClosed { ... }
//	}
type DeliveryError struct {
	// Code classifies the failure (see the ErrCode constants).
	Code string
	// Conversation is the conversation the message was meant for.
	Conversation ref.ConversationID
	// Message is the human-readable description.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery to %s: %s: %s: %v", e.Conversation, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("delivery to %s: %s: %s", e.Conversation, e.Code, e.Message)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Delivery error codes.
const (
	ErrCodeInvalid      = "invalid_message"
	ErrCodeClosed       = "conversation_closed"
	ErrCodeUnknown      = "unknown_conversation"
	ErrCodeStoreFailure = "store_failure"
)

// IsDeliveryError checks whether err is a *DeliveryError with the
// given code.
func IsDeliveryError(err error, code string) bool {
	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		return deliveryErr.Code == code
	}
	return false
}
