package api

import (
	"errors"
	"net/http"

	apperrors "github.com/openshift-hyperfleet/hub-clusters/pkg/errors"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
)

// toServiceError maps err onto the error table. Cluster service errors keep
// their status when it is a not found or permission error and are reported
// as bad gateway otherwise.
func toServiceError(err error) *apperrors.ServiceError {
	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	if apiErr, ok := apperrors.IsAPIError(err); ok {
		switch {
		case apiErr.IsNotFound():
			return apperrors.NotFound("%s", apiErrorText(apiErr, err))
		case apiErr.IsForbidden():
			return apperrors.Forbidden("%s", apiErrorText(apiErr, err))
		}
		return clusterServiceError(err)
	}
	return apperrors.GeneralError("%s", err.Error())
}

func clusterServiceError(err error) *apperrors.ServiceError {
	if apiErr, ok := apperrors.IsAPIError(err); ok {
		return apperrors.ClusterServiceError("%s", apiErrorText(apiErr, err))
	}
	if err == nil {
		return apperrors.ClusterServiceError("")
	}
	return apperrors.ClusterServiceError("%s", err.Error())
}

func apiErrorText(apiErr *apperrors.APIError, err error) string {
	if msg := apiErr.Message(); msg != "" {
		return msg
	}
	return err.Error()
}

// respondError renders err as an error body. Server side failures are logged.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	svcErr := toServiceError(err)
	if svcErr.HttpCode >= http.StatusInternalServerError {
		h.log.Errorf(logger.WithErrorField(r.Context(), err), "%s %s failed", r.Method, r.URL.Path)
	} else {
		h.log.Debugf(r.Context(), "%s %s rejected: %s", r.Method, r.URL.Path, svcErr.Reason)
	}
	respondJSON(w, svcErr.HttpCode, svcErr.AsBody())
}

func errNoRoute(r *http.Request) error {
	return apperrors.NotFound("no route for %s %s", r.Method, r.URL.Path)
}

func errMethodNotAllowed(r *http.Request) error {
	return apperrors.NotImplemented("method %s is not allowed on %s", r.Method, r.URL.Path)
}
