package biz

import (
	"github.com/DevRickLin/msg-forwarder/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Source   *usecase.SourceUsecase
	Gate     *usecase.GateUsecase
	Dispatch *usecase.DispatchUsecase
}
