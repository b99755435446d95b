package v1

import (
	"github.com/andreyxaxa/Ephemeral-Chat/internal/usecase"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/gofiber/fiber/v2"
)

func NewMessageRoutes(apiV1Group fiber.Router, media usecase.MediaUseCase, l logger.Interface) {
	r := &V1{media: media, logger: l}

	messagesGroup := apiV1Group.Group("/messages")

	{
		messagesGroup.Post("/image", r.createImageMessage)
		messagesGroup.Get("/:id", r.getMessage)
		messagesGroup.Post("/:id/view", r.markViewed)
		messagesGroup.Post("/:id/expire", r.forceExpire)
		messagesGroup.Post("/:id/read", r.markRead)
	}
}
