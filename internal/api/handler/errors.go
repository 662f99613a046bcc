package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/qs3c/redact_go_server/config"
	"github.com/qs3c/redact_go_server/internal/pkg/response"
	"github.com/qs3c/redact_go_server/internal/pkg/tron"
	"github.com/qs3c/redact_go_server/internal/service"
)

// writeServiceError 把 service 层错误映射为 HTTP 状态码
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, service.ErrInvalidPlan),
		errors.Is(err, service.ErrNoDepositAddress):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrInsufficientCredits):
		response.PaymentRequired(c, "")
	case errors.Is(err, tron.ErrProvider):
		var perr *tron.ProviderError
		msg := ""
		if errors.As(err, &perr) {
			msg = perr.Error()
		}
		log.Warn().Err(err).Str("path", c.FullPath()).Msg("payment provider error")
		response.BadGateway(c, msg)
	case errors.Is(err, config.ErrConfig):
		log.Error().Err(err).Str("path", c.FullPath()).Msg("configuration error")
		response.ServerError(c, "server misconfigured")
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		response.ServerError(c, "")
	}
}
