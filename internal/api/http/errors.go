package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mind-engage/studycoach/internal/chat"
	"github.com/mind-engage/studycoach/internal/coursework"
	"github.com/mind-engage/studycoach/internal/createai"
	"github.com/mind-engage/studycoach/internal/platform/apierr"
	"github.com/mind-engage/studycoach/internal/platform/logger"
	"github.com/mind-engage/studycoach/internal/storage"
	"github.com/mind-engage/studycoach/internal/studyaid"
)

// toAPIError maps domain sentinels onto HTTP errors. Unknown errors stay
// 500s and are logged by writeErr.
func toAPIError(err error) *apierr.Error {
	var ae *apierr.Error
	var he *createai.HTTPError
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, coursework.ErrNotFound):
		return apierr.New(http.StatusNotFound, "item_not_found", err)
	case errors.Is(err, coursework.ErrInvalidItem):
		return apierr.BadRequest("invalid_item", err)
	case errors.Is(err, chat.ErrNotFound):
		return apierr.New(http.StatusNotFound, "session_not_found", err)
	case errors.Is(err, chat.ErrEmptyMessage):
		return apierr.BadRequest("empty_message", err)
	case errors.Is(err, studyaid.ErrUnknownKind):
		return apierr.BadRequest("unknown_kind", err)
	case errors.Is(err, studyaid.ErrNoTopics):
		return apierr.New(http.StatusUnprocessableEntity, "no_topics", err)
	case errors.Is(err, studyaid.ErrMalformedOutput):
		return apierr.New(http.StatusBadGateway, "malformed_model_output", err)
	case errors.Is(err, createai.ErrNotConfigured):
		return apierr.New(http.StatusServiceUnavailable, "assistant_unavailable", err)
	case errors.As(err, &he):
		return apierr.New(http.StatusBadGateway, "assistant_error", err)
	case errors.Is(err, storage.ErrNotFound):
		return apierr.New(http.StatusNotFound, "asset_not_found", err)
	case errors.Is(err, storage.ErrInvalidKey):
		return apierr.BadRequest("invalid_key", err)
	}
	return apierr.As(err)
}

func writeErr(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	ae := toAPIError(err)
	if ae.Status >= 500 {
		log.Error("request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"error", err.Error())
	}
	apierr.Write(w, ae)
}
