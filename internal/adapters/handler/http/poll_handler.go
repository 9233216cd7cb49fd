package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type PollHandler struct {
	service ports.PollService
}

func NewPollHandler(service ports.PollService) *PollHandler {
	return &PollHandler{
		service: service,
	}
}

type createPollRequest struct {
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	CreatorID string   `json:"creator_id"`
}

func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	poll, err := h.service.Create(r.Context(), ports.CreatePollInput{
		Question:  req.Question,
		Options:   req.Options,
		CreatorID: req.CreatorID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, poll)
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.service.GetPoll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, poll)
}

func (h *PollHandler) ListByCreator(w http.ResponseWriter, r *http.Request) {
	polls, err := h.service.ListByCreator(r.Context(), chi.URLParam(r, "creatorId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, polls)
}

func (h *PollHandler) ListVotedBy(w http.ResponseWriter, r *http.Request) {
	polls, err := h.service.ListVotedBy(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, polls)
}
