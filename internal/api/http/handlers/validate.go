package handlers

import (
	"bytes"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-service/internal/validation"
	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

const payloadKey = "validated_payload"

// ValidateBody checks the JSON body against schema before the handler runs.
// On failure it returns validation.Errors and the handler is skipped.
func ValidateBody(schema validation.Schema) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input := map[string]any{}
		if body := bytes.TrimSpace(c.Body()); len(body) > 0 {
			if err := json.Unmarshal(body, &input); err != nil {
				return apperrors.NewValidationError("Invalid JSON body", nil)
			}
		}

		payload, errs := validation.Validate(schema, input)
		if len(errs) > 0 {
			return errs
		}
		c.Locals(payloadKey, payload)
		return c.Next()
	}
}

// BodyPayload returns the body validated by ValidateBody.
func BodyPayload(c *fiber.Ctx) validation.Payload {
	payload, _ := c.Locals(payloadKey).(validation.Payload)
	return payload
}
