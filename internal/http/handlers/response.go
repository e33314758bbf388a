// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response envelopes and the single top-level error
// boundary. Every endpoint is written as a function returning error and
// wrapped with Handlers.boundary: any failure raised anywhere below (hook
// business rules, safe lookups, storage faults, unclassified errors)
// propagates unmodified to the boundary, is classified exactly once, and is
// written in the standard error envelope. Handlers never recover failures
// locally.
//
// Wire shapes:
//
//	error:   { "error": { "code": string, "message": string, "details": …, …extra } }
//	success: { "message": string, "data": any }
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-blog-backend/internal/apperr"
	"github.com/tbourn/go-blog-backend/internal/http/middleware"
)

// BuildError structures a classified response into the error envelope.
// Pure formatting: details is always present (null when absent) and extra
// metadata is flattened into the error object.
func BuildError(resp apperr.Response) gin.H {
	e := gin.H{
		"code":    resp.Code,
		"message": resp.Message,
		"details": resp.Details,
	}
	for k, v := range resp.Extra {
		e[k] = v
	}
	return gin.H{"error": e}
}

// BuildSuccess structures a success payload into the success envelope,
// preserving data unchanged.
func BuildSuccess(message string, data any) gin.H {
	return gin.H{"message": message, "data": data}
}

// Abort classifies err through the request-scoped logger and writes the error
// envelope, ending the request. It is the exported entry point for code
// outside this package (router fallbacks, middleware wiring).
func (h *Handlers) Abort(c *gin.Context, err error) {
	resp := h.classifier.WithLogger(*middleware.LoggerFrom(c)).Classify(err)
	middleware.CountError(resp.Code)
	c.AbortWithStatusJSON(resp.HTTPStatus, BuildError(resp))
}

// boundary adapts an error-returning handler into a gin.HandlerFunc. This is
// the top-level dispatch boundary; ad-hoc custom actions reuse it so their
// faults take the same classification path as the standard CRUD operations.
func (h *Handlers) boundary(fn func(*gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := fn(c); err != nil {
			h.Abort(c, err)
		}
	}
}

// success writes the success envelope with the given HTTP status.
func success(c *gin.Context, status int, message string, data any) {
	c.JSON(status, BuildSuccess(message, data))
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// bindJSON validates the request content type and decodes the body into dst.
// Wrong media types and malformed bodies surface as failures for the
// boundary, never as ad-hoc responses.
func bindJSON(c *gin.Context, dst any) error {
	if ct := c.ContentType(); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return apperr.UnsupportedMedia(ct)
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Parse(err.Error())
	}
	return nil
}

// currentUser returns the authenticated user ID set by the upstream auth
// middleware, empty when the request is anonymous.
func currentUser(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// requireUser returns the authenticated user ID or an auth-missing failure
// for anonymous requests.
func requireUser(c *gin.Context) (string, error) {
	if uid := currentUser(c); uid != "" {
		return uid, nil
	}
	return "", apperr.AuthMissing()
}
