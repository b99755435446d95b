package v1

import (
	"errors"
	"net/http"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/admission"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/controller/restapi/v1/response"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/types/errs"
	"github.com/gofiber/fiber/v2"
)

func errorResponse(ctx *fiber.Ctx, code int, msg string) error {
	return ctx.Status(code).JSON(response.Error{Error: msg})
}

// useCaseError maps a use case error onto a status code and a client-safe message.
// Anything unknown is logged and reported as 500.
func (r *V1) useCaseError(ctx *fiber.Ctx, err error, op string) error {
	var rejection *admission.RejectionError
	if errors.As(err, &rejection) {
		return errorResponse(ctx, rejectionStatus(rejection.Reason), string(rejection.Reason))
	}

	switch {
	case errors.Is(err, errs.ErrRecordNotFound):
		return errorResponse(ctx, http.StatusNotFound, "message not found")
	case errors.Is(err, errs.ErrForbidden):
		return errorResponse(ctx, http.StatusForbidden, "forbidden")
	case errors.Is(err, errs.ErrIllegalTransition):
		return errorResponse(ctx, http.StatusConflict, "illegal transition")
	case errors.Is(err, errs.ErrSelfMessage):
		return errorResponse(ctx, http.StatusBadRequest, errs.ErrSelfMessage.Error())
	case errors.Is(err, errs.ErrInvalidArgument):
		return errorResponse(ctx, http.StatusBadRequest, "invalid argument")
	}

	r.logger.Error(err, "restapi - v1 - "+op)

	return errorResponse(ctx, http.StatusInternalServerError, "internal error")
}

func rejectionStatus(reason admission.Reason) int {
	switch reason {
	case admission.ReasonTooLarge:
		return http.StatusRequestEntityTooLarge
	case admission.ReasonDisallowedType, admission.ReasonTypeMismatch, admission.ReasonUnrecognized:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadRequest
	}
}
