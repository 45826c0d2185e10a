package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"
	"github.com/yoockh/labourline/internal/utils"
)

// TwilioSignature rejects webhooks whose X-Twilio-Signature was not produced
// with authToken. publicBaseURL is the origin configured at the provider;
// behind a proxy the request's own host and scheme differ from it.
func TwilioSignature(authToken, publicBaseURL string) gin.HandlerFunc {
	validator := client.NewRequestValidator(authToken)
	base := strings.TrimRight(publicBaseURL, "/")

	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, apiError{
				Code:    utils.CodeInvalidArgument,
				Message: "malformed form body",
			})
			return
		}

		params := make(map[string]string, len(c.Request.PostForm))
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}

		origin := base
		if origin == "" {
			origin = requestOrigin(c.Request)
		}
		signed := origin + c.Request.URL.RequestURI()

		if !validator.Validate(signed, params, c.GetHeader("X-Twilio-Signature")) {
			_ = c.Error(errors.New("invalid webhook signature"))
			c.AbortWithStatusJSON(http.StatusForbidden, apiError{
				Code:    utils.CodeForbidden,
				Message: "invalid webhook signature",
			})
			return
		}
		c.Next()
	}
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}
