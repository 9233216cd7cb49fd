package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type VoteHandler struct {
	service  ports.VoteService
	resolver AddressResolver
}

func NewVoteHandler(service ports.VoteService, resolver AddressResolver) *VoteHandler {
	return &VoteHandler{
		service:  service,
		resolver: resolver,
	}
}

type voteRequest struct {
	OptionID string `json:"option_id"`
	UserID   string `json:"user_id"`
}

// VoteOnPoll answers with the committed poll so the voter sees its own vote
// without waiting for the room broadcast.
func (h *VoteHandler) VoteOnPoll(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	poll, err := h.service.Vote(r.Context(), ports.VoteInput{
		PollID:       chi.URLParam(r, "id"),
		OptionID:     req.OptionID,
		UserID:       req.UserID,
		VoterAddress: h.resolver.Resolve(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, poll)
}
