package v1

import (
	"github.com/andreyxaxa/Ephemeral-Chat/internal/usecase"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
)

type V1 struct {
	media  usecase.MediaUseCase
	logger logger.Interface
}
