package service

import (
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// Aggregate cache namespaces.
const (
	usersCache         = "users"
	chatRoomsCache     = "chat_rooms"
	messagesCache      = "messages"
	notificationsCache = "notifications"
)

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func newContentSanitizer() *bluemonday.Policy {
	return bluemonday.StrictPolicy()
}

// sanitizeContent strips markup and surrounding whitespace from user supplied text.
// The policy escapes what it keeps; that is undone so text is stored and
// length-checked as typed.
func sanitizeContent(policy *bluemonday.Policy, content string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(strings.TrimSpace(content))))
}
