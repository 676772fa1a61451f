// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/penguin2121/catalogOnline/internal/middleware"
	"github.com/penguin2121/catalogOnline/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationAPIError(ve.Message))
	case errors.Is(err, model.ErrAmbiguousLookup):
		// 業務キーの重複はデータ不整合として扱い、どちらかを選ばない
		slog.Error("inconsistent catalog data",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
		middleware.WriteInternalServerError(w)
	case errors.Is(err, model.ErrNotFound):
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundAPIError())
	case errors.Is(err, model.ErrDuplicateItem):
		middleware.WriteErrorResponse(w, http.StatusConflict, model.NewDuplicateItemAPIError())
	case errors.Is(err, model.ErrVersionConflict):
		middleware.WriteErrorResponse(w, http.StatusConflict, model.NewVersionConflictAPIError())
	case errors.Is(err, model.ErrStoreUnavailable):
		slog.Error("store unavailable",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewStoreUnavailableAPIError())
	default:
		slog.Error("internal server error",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
		middleware.WriteInternalServerError(w)
	}
}
