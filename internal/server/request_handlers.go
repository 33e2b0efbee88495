package server

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"strings"

	"smartcity/internal/models"
	"smartcity/internal/service"

	"github.com/gofiber/fiber/v2"
)

// readUploads drains the multipart files attached under the "documents" field.
func readUploads(files []*multipart.FileHeader) ([]service.FileUpload, error) {
	uploads := make([]service.FileUpload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, service.FileUpload{Name: fh.Filename, Data: data})
	}
	return uploads, nil
}

// CreateRequest handles POST /api/requests. Accepts multipart (fields plus
// "documents" files) or plain JSON without attachments.
func (s *Server) CreateRequest(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	var in service.CreateRequestInput

	if form, ferr := c.MultipartForm(); ferr == nil && form != nil {
		value := func(key string) string {
			if v := form.Value[key]; len(v) > 0 {
				return v[0]
			}
			return ""
		}
		in.Name = value("name")
		in.Description = value("description")
		in.Category = value("category")
		in.Address = value("address")

		uploads, uerr := readUploads(form.File["documents"])
		if uerr != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Could not read uploaded documents"))
		}
		in.Files = uploads
	} else {
		var body struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Category    string `json:"category"`
			Address     string `json:"address"`
		}
		if err := c.BodyParser(&body); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		in = service.CreateRequestInput{
			Name:        body.Name,
			Description: body.Description,
			Category:    body.Category,
			Address:     body.Address,
		}
	}

	req, events, err := s.requestService.Create(c.Context(), actor, in)
	if err != nil {
		return s.serviceError(c, err)
	}
	s.dispatchRequestEvents(c.Context(), events)

	return c.Status(fiber.StatusCreated).JSON(req)
}

// GetRequest handles GET /api/requests/:id
func (s *Server) GetRequest(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	req, err := s.requestService.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(req)
}

// GetMyRequests handles GET /api/requests/me
func (s *Server) GetMyRequests(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	reqs, err := s.requestService.ListMine(c.Context(), actor)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(reqs)
}

// GetRequestsForReview handles GET /api/requests/review?status=PENDING
func (s *Server) GetRequestsForReview(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	status := models.RequestStatus(strings.ToUpper(c.Query("status")))
	reqs, err := s.requestService.ListForReview(c.Context(), actor, status)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(reqs)
}

// GetApprovedBusinesses handles GET /api/businesses (public)
func (s *Server) GetApprovedBusinesses(c *fiber.Ctx) error {
	reqs, err := s.requestService.ListApproved(c.Context())
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(reqs)
}

// UpdateRequest handles PUT /api/requests/:id (owner content edits)
func (s *Server) UpdateRequest(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Address     string `json:"address"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req, events, err := s.requestService.OwnerUpdate(c.Context(), actor, c.Params("id"), service.UpdateRequestInput{
		Name:        body.Name,
		Description: body.Description,
		Category:    body.Category,
		Address:     body.Address,
	})
	if err != nil {
		return s.serviceError(c, err)
	}
	s.dispatchRequestEvents(c.Context(), events)

	return c.JSON(req)
}

// ReviewRequest handles PATCH /api/requests/:id/review (admin decision).
// Lat/lng are tri-state: absent leaves the stored location alone, explicit
// null clears it, a number sets it.
func (s *Server) ReviewRequest(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	var body struct {
		Status   *string         `json:"status"`
		Comments *string         `json:"comments"`
		Lat      json.RawMessage `json:"lat"`
		Lng      json.RawMessage `json:"lng"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	patch := service.AdminPatch{Comments: body.Comments}
	if body.Status != nil {
		status := models.RequestStatus(strings.ToUpper(*body.Status))
		patch.Status = &status
	}

	explicitNull := func(raw json.RawMessage) bool {
		return string(raw) == "null"
	}
	if explicitNull(body.Lat) && explicitNull(body.Lng) {
		patch.ClearLocation = true
	} else {
		if len(body.Lat) > 0 && !explicitNull(body.Lat) {
			var lat float64
			if err := json.Unmarshal(body.Lat, &lat); err != nil {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError("lat must be a number or null"))
			}
			patch.Lat = &lat
		}
		if len(body.Lng) > 0 && !explicitNull(body.Lng) {
			var lng float64
			if err := json.Unmarshal(body.Lng, &lng); err != nil {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError("lng must be a number or null"))
			}
			patch.Lng = &lng
		}
	}

	req, events, err := s.requestService.AdminUpdate(c.Context(), actor, c.Params("id"), patch)
	if err != nil {
		return s.serviceError(c, err)
	}
	s.dispatchRequestEvents(c.Context(), events)

	return c.JSON(req)
}

// UploadDocuments handles POST /api/requests/:id/documents
func (s *Server) UploadDocuments(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	form, err := c.MultipartForm()
	if err != nil || form == nil || len(form.File["documents"]) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("At least one document is required"))
	}
	uploads, err := readUploads(form.File["documents"])
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read uploaded documents"))
	}

	req, events, err := s.requestService.AddDocuments(c.Context(), actor, c.Params("id"), uploads)
	if err != nil {
		return s.serviceError(c, err)
	}
	s.dispatchRequestEvents(c.Context(), events)

	return c.JSON(req)
}

// RemoveDocument handles DELETE /api/requests/:id/documents/:index
func (s *Server) RemoveDocument(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	index, err := s.parseIndex(c, "index")
	if err != nil {
		return nil
	}

	req, events, err := s.requestService.RemoveDocumentAt(c.Context(), actor, c.Params("id"), index)
	if err != nil {
		return s.serviceError(c, err)
	}
	s.dispatchRequestEvents(c.Context(), events)

	return c.JSON(req)
}

// DownloadDocument handles GET /api/requests/:id/documents/:index
func (s *Server) DownloadDocument(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	index, err := s.parseIndex(c, "index")
	if err != nil {
		return nil
	}

	rc, doc, err := s.requestService.OpenDocumentAt(c.Context(), actor, c.Params("id"), index)
	if err != nil {
		return s.serviceError(c, err)
	}

	filename := strings.ReplaceAll(doc.OriginalName, `"`, "")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	// fasthttp closes body streams that implement io.Closer
	return c.SendStream(rc)
}

// DeleteRequest handles DELETE /api/requests/:id
func (s *Server) DeleteRequest(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	events, err := s.requestService.Delete(c.Context(), actor, c.Params("id"))
	if err != nil {
		return s.serviceError(c, err)
	}
	s.dispatchRequestEvents(c.Context(), events)

	return c.SendStatus(fiber.StatusNoContent)
}
