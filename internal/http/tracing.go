package http

import (
	"github.com/gin-gonic/gin"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/ext"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// Trace opens a server span per request. The span is a no-op until the
// tracer is started.
func Trace(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		resource := c.FullPath()
		if resource == "" {
			resource = "unmatched"
		}
		sp, ctx := tracer.StartSpanFromContext(c.Request.Context(), "http.request",
			tracer.ServiceName(service),
			tracer.ResourceName(c.Request.Method+" "+resource),
			tracer.SpanType(ext.SpanTypeWeb),
			tracer.Tag(ext.HTTPMethod, c.Request.Method),
			tracer.Tag(ext.HTTPURL, c.Request.URL.Path),
		)
		defer sp.Finish()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		sp.SetTag(ext.HTTPCode, c.Writer.Status())
		if len(c.Errors) > 0 {
			sp.SetTag(ext.Error, c.Errors.Last().Err)
		}
	}
}
