package controllers

import (
	"context"
	"errors"
	"fmt"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/curaious/oneflow/internal/api/authenticator"
	"github.com/curaious/oneflow/internal/api/response"
	"github.com/curaious/oneflow/internal/perrors"
)

func requestContext(ctx *fasthttp.RequestCtx) context.Context {
	return authenticator.RequestContext(ctx)
}

func parseBody(ctx *fasthttp.RequestCtx, target any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return errors.New("request body is empty")
	}

	return json.Unmarshal(body, target)
}

func writeError(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, err error) {
	response.NewResponse[any](stdCtx, message, nil).WithError(err).Write(ctx)
}

func writeOK(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, data any) {
	response.NewResponse(stdCtx, message, data).Write(ctx)
}

func writeCreated(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, data any) {
	response.NewResponse(stdCtx, message, data).WithStatus(fasthttp.StatusCreated).Write(ctx)
}

// fail writes err with its own message when it is a perrors.Err.
func fail(ctx *fasthttp.RequestCtx, stdCtx context.Context, err error) {
	msg := "Request failed"
	if perr, ok := perrors.As(err); ok {
		msg = perr.Message
	}
	writeError(ctx, stdCtx, msg, err)
}

func pathParam(ctx *fasthttp.RequestCtx, key string) (string, error) {
	val := ctx.UserValue(key)
	if val == nil {
		return "", fmt.Errorf("%s is required", key)
	}

	return fmt.Sprint(val), nil
}

func pathParamUUID(ctx *fasthttp.RequestCtx, key string) (uuid.UUID, error) {
	val, err := pathParam(ctx, key)
	if err != nil {
		return uuid.Nil, err
	}

	return uuid.Parse(val)
}

// currentIdentity reads the caller attached by authenticator.Require, writing a 401 when absent.
func currentIdentity(ctx *fasthttp.RequestCtx, stdCtx context.Context) (*authenticator.Identity, bool) {
	id, ok := authenticator.IdentityFrom(ctx)
	if !ok {
		fail(ctx, stdCtx, perrors.NewErrUnauthorized(authenticator.ReasonAuthRequired, nil))
	}
	return id, ok
}
