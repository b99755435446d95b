package v1

import (
	"io"
	"net/http"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/controller/restapi/middleware"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/controller/restapi/v1/response"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/controller/restapi/v1/validate"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// @Summary  	Send image message
// @Description Admits the image, stores it and announces it to the conversation
// @Tags 		messages
// @Accept 		mpfd
// @Produce 	json
// @Security 	BearerAuth
// @Param 		file 		formData file   true  "Image file(jpeg, png, gif, webp)"
// @Param 		receiver_id formData string true  "Receiver user id"
// @Param 		caption 	formData string false "Preview text"
// @Success 	201 {object} response.CreateImageMessage
// @Failure 	400 {object} response.Error "Empty file or wrong parameters"
// @Failure 	413 {object} response.Error "File too large"
// @Failure 	415 {object} response.Error "Unsupported or mismatched format"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/messages/image [post]
func (r *V1) createImageMessage(ctx *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(ctx)
	if !ok {
		return errorResponse(ctx, http.StatusUnauthorized, "unauthorized")
	}

	// 1. form fields
	receiverID := ctx.FormValue(validate.FormReceiver)
	if err := validate.ReceiverID(receiverID); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, err.Error())
	}

	caption := ctx.FormValue(validate.FormCaption)
	if err := validate.Caption(caption); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, err.Error())
	}

	file, err := ctx.FormFile(validate.FormFile)
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "file is required")
	}

	// 2. cheap checks before reading the body
	contentType := file.Header.Get(fiber.HeaderContentType)
	if err = r.media.PrecheckUpload(contentType, file.Size); err != nil {
		return r.useCaseError(ctx, err, "createImageMessage")
	}

	// 3. read
	fileReader, err := file.Open()
	if err != nil {
		r.logger.Error(err, "restapi - v1 - createImageMessage - file.Open")

		return errorResponse(ctx, http.StatusInternalServerError, "problems with opening the file")
	}
	defer fileReader.Close()

	data, err := io.ReadAll(fileReader)
	if err != nil {
		r.logger.Error(err, "restapi - v1 - createImageMessage - io.ReadAll")

		return errorResponse(ctx, http.StatusInternalServerError, "problems with reading the file")
	}

	// 4. admit and store
	rec, err := r.media.CreateImageMessage(ctx.UserContext(), actor.ID, receiverID, dto.Upload{
		Data:         data,
		DeclaredType: contentType,
		Size:         file.Size,
		Caption:      caption,
	})
	if err != nil {
		return r.useCaseError(ctx, err, "createImageMessage")
	}

	return ctx.Status(http.StatusCreated).JSON(response.NewCreateImageMessage(rec))
}

// @Summary 	Get message
// @Description Returns the message as the caller may see it. Expired images carry no payload.
// @Tags 		messages
// @Produce 	json
// @Security 	BearerAuth
// @Param 		id path string true "Message ID(uuid)"
// @Success 	200 {object} response.Message
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	403 {object} response.Error "Not a participant"
// @Failure 	404 {object} response.Error "Message not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/messages/{id} [get]
func (r *V1) getMessage(ctx *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(ctx)
	if !ok {
		return errorResponse(ctx, http.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	media, err := r.media.GetForClient(ctx.UserContext(), id, actor)
	if err != nil {
		return r.useCaseError(ctx, err, "getMessage")
	}

	return ctx.Status(http.StatusOK).JSON(media)
}

// @Summary 	View image
// @Description Starts the view countdown. Repeated calls return the same window.
// @Tags 		messages
// @Produce 	json
// @Security 	BearerAuth
// @Param 		id path string true "Message ID(uuid)"
// @Success 	200 {object} response.ViewWindow
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	403 {object} response.Error "Not the receiver"
// @Failure 	404 {object} response.Error "Message not found"
// @Failure 	409 {object} response.Error "Illegal transition"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/messages/{id}/view [post]
func (r *V1) markViewed(ctx *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(ctx)
	if !ok {
		return errorResponse(ctx, http.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	window, err := r.media.MarkViewed(ctx.UserContext(), id, actor)
	if err != nil {
		return r.useCaseError(ctx, err, "markViewed")
	}

	return ctx.Status(http.StatusOK).JSON(window)
}

// @Summary 	Expire image
// @Description Destroys the image now. Expiring an expired image succeeds.
// @Tags 		messages
// @Security 	BearerAuth
// @Param 		id path string true "Message ID(uuid)"
// @Success 	204 "Expired"
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	403 {object} response.Error "Not a participant"
// @Failure 	404 {object} response.Error "Message not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/messages/{id}/expire [post]
func (r *V1) forceExpire(ctx *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(ctx)
	if !ok {
		return errorResponse(ctx, http.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	err = r.media.ForceExpire(ctx.UserContext(), id, actor)
	if err != nil {
		return r.useCaseError(ctx, err, "forceExpire")
	}

	return ctx.SendStatus(http.StatusNoContent)
}

// @Summary 	Mark read
// @Description Acknowledges the message. Does not affect the image countdown.
// @Tags 		messages
// @Security 	BearerAuth
// @Param 		id path string true "Message ID(uuid)"
// @Success 	204 "Read"
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	403 {object} response.Error "Not the receiver"
// @Failure 	404 {object} response.Error "Message not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/messages/{id}/read [post]
func (r *V1) markRead(ctx *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(ctx)
	if !ok {
		return errorResponse(ctx, http.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	err = r.media.MarkRead(ctx.UserContext(), id, actor)
	if err != nil {
		return r.useCaseError(ctx, err, "markRead")
	}

	return ctx.SendStatus(http.StatusNoContent)
}
