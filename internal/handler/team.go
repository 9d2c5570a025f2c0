package handler

import (
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xyntoro/xyntoro/internal/model"
	"github.com/xyntoro/xyntoro/internal/storage"
	"github.com/xyntoro/xyntoro/internal/store"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before file parts spill to temporary files.
const multipartMemory = 4 << 20

const memberNotFound = "Member not found"

var errUploadsDisabled = errors.New("image uploads are not enabled")

// TeamHandler serves /api/team. Writes accept either JSON or the
// multipart form the admin dashboard submits, with an optional "image" file.
type TeamHandler struct {
	store  *store.Store
	images storage.Store
	logger *slog.Logger
}

// NewTeamHandler creates a new TeamHandler. images may be nil, in which case
// requests carrying an image file are rejected.
func NewTeamHandler(s *store.Store, images storage.Store, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{store: s, images: images, logger: logger}
}

// teamInput is a decoded team write request.
type teamInput struct {
	patch model.TeamMemberPatch
	file  multipart.File
	name  string
	size  int64
}

func (in *teamInput) close() {
	if in.file != nil {
		in.file.Close()
	}
}

// List returns every team member in display order.
// GET /api/team
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.ListTeamMembers(r.Context())
	if err != nil {
		writeStoreError(w, r, h.logger, err, memberNotFound)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// Get returns one team member.
// GET /api/team/{id}
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetTeamMember(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, h.logger, err, memberNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Create adds a team member. The record is validated before any image is
// stored so a rejected request leaves no orphaned file behind.
// POST /api/team
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	defer in.close()

	member := &model.TeamMember{}
	in.patch.Apply(member)
	member.Normalize()
	if err := member.Validate(); err != nil {
		writeStoreError(w, r, h.logger, err, memberNotFound)
		return
	}

	uploaded, err := h.upload(r, in)
	if err != nil {
		writeStoreError(w, r, h.logger, err, memberNotFound)
		return
	}
	if uploaded != "" {
		member.Picture = uploaded
	}

	if err := h.store.CreateTeamMember(r.Context(), member); err != nil {
		h.discard(r, uploaded)
		writeStoreError(w, r, h.logger, err, memberNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

// Update applies a partial change to a team member. Empty name, role and
// category values leave the stored value untouched; a new image replaces
// the picture.
// PUT /api/team/{id}
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	defer in.close()

	if c := in.patch.Category; c != nil && *c != "" && !model.ValidCategory(strings.TrimSpace(*c)) {
		writeStoreError(w, r, h.logger, &model.ValidationError{Fields: []string{"category"}}, memberNotFound)
		return
	}

	uploaded, err := h.upload(r, in)
	if err != nil {
		writeStoreError(w, r, h.logger, err, memberNotFound)
		return
	}
	if uploaded != "" {
		in.patch.Picture = &uploaded
	}

	member, err := h.store.UpdateTeamMember(r.Context(), chi.URLParam(r, "id"), in.patch)
	if err != nil {
		h.discard(r, uploaded)
		writeStoreError(w, r, h.logger, err, memberNotFound)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// Delete removes a team member and, best effort, its stored picture.
// DELETE /api/team/{id}
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	member, err := h.store.DeleteTeamMember(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, h.logger, err, memberNotFound)
		return
	}
	h.discard(r, member.Picture)
	writeJSON(w, http.StatusOK, model.StatusResponse{Success: true, Message: "Member deleted"})
}

// decode reads a team write request in either encoding. It writes the error
// response itself and returns false when the body cannot be used.
func (h *TeamHandler) decode(w http.ResponseWriter, r *http.Request) (*teamInput, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		in := &teamInput{}
		if err := readJSON(r, &in.patch); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return nil, false
		}
		return in, true
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return nil, false
	}
	form := r.MultipartForm

	in := &teamInput{}
	field := func(name string) *string {
		if vs, ok := form.Value[name]; ok && len(vs) > 0 {
			v := vs[0]
			return &v
		}
		return nil
	}
	in.patch.Name = field("name")
	in.patch.Role = field("role")
	in.patch.Category = field("category")
	in.patch.Picture = field("picture")

	if order := field("order"); order != nil && strings.TrimSpace(*order) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(*order))
		if err != nil {
			writeStoreError(w, r, h.logger, &model.ValidationError{Fields: []string{"order"}}, memberNotFound)
			return nil, false
		}
		in.patch.Order = &n
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeError(w, http.StatusBadRequest, "Invalid image upload")
		return nil, false
	default:
		in.file, in.name, in.size = file, header.Filename, header.Size
	}
	return in, true
}

// upload stores the request's image, if any, and returns its URL.
func (h *TeamHandler) upload(r *http.Request, in *teamInput) (string, error) {
	if in.file == nil {
		return "", nil
	}
	if h.images == nil {
		return "", errUploadsDisabled
	}
	return h.images.Put(r.Context(), in.name, in.file, in.size)
}

// discard removes a stored image after the record referencing it was not
// written or was deleted. Failures are only logged.
func (h *TeamHandler) discard(r *http.Request, url string) {
	if url == "" || h.images == nil {
		return
	}
	if err := h.images.Delete(r.Context(), url); err != nil {
		h.logger.Warn("failed to delete image", "url", url, "error", err)
	}
}
