package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/pkg/logger"
	"github.com/wyfcoding/smartstock/pkg/response"
)

// statusOf 领域错误类别到 HTTP 状态码
func statusOf(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindProductNotFound, domain.KindCategoryNotFound, domain.KindSaleNotFound:
		return http.StatusNotFound
	case domain.KindIntegrityConflict:
		return http.StatusConflict
	case domain.KindTransactionFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.Error(c.Request.Context(), "Unhandled error", "path", c.FullPath(), "error", err)
		response.Fail(c, http.StatusInternalServerError, "InternalError", "internal server error", false)
		return
	}
	msg := de.Message
	if msg == "" {
		msg = de.Error()
	}
	if de.Kind == domain.KindTransactionFailure {
		// 底层数据库错误不返回给调用方
		msg = "transaction could not be committed, please retry"
	}
	response.Fail(c, statusOf(de.Kind), string(de.Kind), msg, domain.Retryable(err))
}
