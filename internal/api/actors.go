package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ShalomGure/actors-api/internal/actor"
	"github.com/ShalomGure/actors-api/internal/service"
)

const maxBodyBytes = 1 << 20

func (s *Server) listActors(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseListQuery(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	res, err := s.svc.List(r.Context(), filter, page)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) getActor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	detail, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) createActor(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	created, err := s.svc.Create(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/actors/%d", created.ID))
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateActor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var in service.UpdateInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	updated, err := s.svc.Update(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteActor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.svc.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, actor.Validationf("Actor ID %q must be an integer.", raw)
	}
	return id, nil
}

func parseListQuery(r *http.Request) (actor.Filter, actor.PageRequest, error) {
	q := r.URL.Query()
	filter := actor.Filter{Name: q.Get("name")}
	page := actor.PageRequest{Number: 1, Size: actor.DefaultPageSize}

	var err error
	if filter.MinRank, err = optionalInt(q.Get("minRank"), "minRank"); err != nil {
		return filter, page, err
	}
	if filter.MaxRank, err = optionalInt(q.Get("maxRank"), "maxRank"); err != nil {
		return filter, page, err
	}
	if n, err := optionalInt(q.Get("pageNumber"), "pageNumber"); err != nil {
		return filter, page, err
	} else if n != nil {
		page.Number = *n
	}
	if n, err := optionalInt(q.Get("pageSize"), "pageSize"); err != nil {
		return filter, page, err
	} else if n != nil {
		page.Size = *n
	}

	if page.Number < 1 {
		return filter, page, actor.Validationf("Page number must be greater than 0.")
	}
	if page.Size < actor.MinPageSize || page.Size > actor.MaxPageSize {
		return filter, page, actor.Validationf("Page size must be between %d and %d.", actor.MinPageSize, actor.MaxPageSize)
	}
	return filter, page, nil
}

func optionalInt(raw, name string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, actor.Validationf("Query parameter %s must be an integer.", name)
	}
	return &n, nil
}

// decodeBody ignores unknown fields, so a source sent on update is dropped.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, actor.ErrValidation) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return actor.Validationf("Request body is required.")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return actor.Validationf("Request body must not exceed %d bytes.", maxBodyBytes)
		}
		return actor.Validationf("Request body is not valid JSON: %v", err)
	}
	return nil
}
