package handlers

import (
	"net/http"
	"strconv"

	"github.com/argussec/argus/internal/pkg/errors"
	"github.com/argussec/argus/internal/pkg/utils"
)

// writeServiceError maps a service error to the response: AppErrors pass
// through with their status, anything else becomes a 500.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	if appErr, ok := err.(*errors.AppError); ok {
		utils.WriteError(w, appErr)
		return
	}
	utils.WriteError(w, errors.Internal(fallback, err))
}

// pageParams reads page/page_size query parameters with defaults
func pageParams(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
