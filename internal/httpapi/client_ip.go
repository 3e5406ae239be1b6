package httpapi

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// proxyIPHeaders are consulted in order before falling back to the socket
// address. The first X-Forwarded-For hop is the original client.
var proxyIPHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"CF-Connecting-IP",
}

func clientIPFromRequest(context *gin.Context) string {
	for _, header := range proxyIPHeaders {
		value := strings.TrimSpace(context.GetHeader(header))
		if value == "" {
			continue
		}
		if comma := strings.Index(value, ","); comma >= 0 {
			value = strings.TrimSpace(value[:comma])
		}
		if value != "" {
			return value
		}
	}
	return context.RemoteIP()
}
