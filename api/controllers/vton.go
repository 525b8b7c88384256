package controllers

import (
	"net/http"

	"github.com/nikhilmehra04/stylehub-backend/api/middleware"
	"github.com/nikhilmehra04/stylehub-backend/api/responses"
	"github.com/nikhilmehra04/stylehub-backend/api/validators"
	vtonsvc "github.com/nikhilmehra04/stylehub-backend/internal/vton"
	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
	pkgerrors "github.com/nikhilmehra04/stylehub-backend/pkg/errors"
	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
)

type vtonUploadURLRequest struct {
	FileName string `json:"file_name" validate:"required,max=256"`
}

// VtonUploadURL issues a presigned slot for a portrait upload.
func VtonUploadURL(svc vtonsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "try-on service unavailable"))
			return
		}

		var payload vtonUploadURLRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		ticket, err := svc.CreateUploadTicket(r.Context(), userID, payload.FileName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ticket)
	}
}

type saveUserImageRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
	S3Key    string `json:"s3_key" validate:"required"`
}

// VtonSaveImage records an uploaded portrait against the caller.
func VtonSaveImage(svc vtonsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "try-on service unavailable"))
			return
		}

		var payload saveUserImageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		image, err := svc.SaveUserImage(r.Context(), userID, payload.ImageURL, payload.S3Key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, image)
	}
}

// VtonListImages returns the caller's stored portraits.
func VtonListImages(svc vtonsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "try-on service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		images, err := svc.ListUserImages(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, images)
	}
}

// VtonDeleteImage removes a stored portrait and its object.
func VtonDeleteImage(svc vtonsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "try-on service unavailable"))
			return
		}

		imageID, err := validators.ParseIDParam(r, "imageID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if err := svc.DeleteUserImage(r.Context(), userID, imageID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type generateRequest struct {
	UserImageID      uint `json:"user_image_id" validate:"required"`
	ProductID        uint `json:"product_id" validate:"required"`
	SegmentationType int  `json:"segmentation_type" validate:"min=0,max=2"`
}

// VtonGenerate queues a try-on job and acknowledges before it resolves.
func VtonGenerate(svc vtonsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "try-on service unavailable"))
			return
		}

		var payload generateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		segmentation, err := enums.ParseSegmentationType(payload.SegmentationType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid segmentation type"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		result, err := svc.Generate(r.Context(), userID, payload.UserImageID, payload.ProductID, segmentation)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

// VtonStatus returns the current state of one try-on job.
func VtonStatus(svc vtonsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "try-on service unavailable"))
			return
		}

		jobID, err := validators.ParseIDParam(r, "jobID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		job, err := svc.Status(r.Context(), userID, jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, job)
	}
}

// VtonHistory returns the caller's past try-on jobs with product context.
func VtonHistory(svc vtonsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "try-on service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		entries, err := svc.History(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entries)
	}
}
