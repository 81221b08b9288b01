package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	offerservice "beacon/contexts/campaign-core/offer-service"
	offercommands "beacon/contexts/campaign-core/offer-service/application/commands"
	offerentities "beacon/contexts/campaign-core/offer-service/domain/entities"
	offererrors "beacon/contexts/campaign-core/offer-service/domain/errors"
	offerhttp "beacon/contexts/campaign-core/offer-service/transport/http"
	linkingservice "beacon/contexts/social-integration/linking-service"
	linkingerrors "beacon/contexts/social-integration/linking-service/domain/errors"
	linkinghttp "beacon/contexts/social-integration/linking-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "beacon/internal/platform/httpserver/docs"
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	linking linkingservice.Module
	offers  offerservice.Module
}

func New(
	linking linkingservice.Module,
	offers offerservice.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		linking: linking,
		offers:  offers,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.mux.HandleFunc("POST /v1/social/links/{user_id}", s.handleStartLinking)
	s.mux.HandleFunc("POST /v1/social/links/{user_id}/renewal", s.handleRequestRenewal)
	s.mux.HandleFunc("GET /v1/social/links/{user_id}", s.handleGetLinkStatus)

	s.mux.HandleFunc("POST /v1/offers", s.handleCreateOffer)
	s.mux.HandleFunc("POST /v1/offers/{offer_id}/accept", s.handleAcceptOffer)
	s.mux.HandleFunc("POST /v1/offers/{offer_id}/decline", s.handleDeclineOffer)
	s.mux.HandleFunc("GET /v1/offers/{offer_id}", s.handleGetOffer)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartLinking(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	eventID, err := s.linking.StartLinking.Execute(r.Context(), userID)
	if err != nil {
		writeLinkingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, linkinghttp.StartWorkflowResponse{
		UserID:  userID,
		EventID: eventID,
	})
}

func (s *Server) handleRequestRenewal(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	eventID, err := s.linking.RequestRenewal.Execute(r.Context(), userID)
	if err != nil {
		writeLinkingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, linkinghttp.StartWorkflowResponse{
		UserID:  userID,
		EventID: eventID,
	})
}

func (s *Server) handleGetLinkStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	status, err := s.linking.GetLinkStatus.Execute(r.Context(), userID)
	if err != nil {
		writeLinkingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, linkinghttp.LinkStatusResponse{
		UserID:    status.UserID,
		Workflow:  status.Workflow,
		State:     status.State,
		StartedAt: status.StartedAt,
		Finalized: status.Finalized,
	})
}

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	var req offerhttp.CreateOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOfferError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	offer, err := s.offers.CreateOffer.Execute(r.Context(), offercommands.CreateOfferInput{
		CampaignID: req.CampaignID,
		BloggerID:  req.BloggerID,
		Price:      req.Price,
	})
	if err != nil {
		writeOfferDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, offerResponse(offer))
}

func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	offerID := r.PathValue("offer_id")
	offer, err := s.offers.AcceptOffer.Execute(r.Context(), offerID)
	if err != nil {
		writeOfferDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offerResponse(offer))
}

func (s *Server) handleDeclineOffer(w http.ResponseWriter, r *http.Request) {
	offerID := r.PathValue("offer_id")
	offer, err := s.offers.DeclineOffer.Execute(r.Context(), offerID)
	if err != nil {
		writeOfferDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offerResponse(offer))
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	offerID := r.PathValue("offer_id")
	offer, err := s.offers.GetOffer.Execute(r.Context(), offerID)
	if err != nil {
		writeOfferDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offerResponse(offer))
}

func writeLinkingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, linkingerrors.ErrUserIDRequired):
		writeLinkingError(w, http.StatusBadRequest, "user_id_required", err.Error())
	case errors.Is(err, linkingerrors.ErrLinkNotFound):
		writeLinkingError(w, http.StatusNotFound, "link_not_found", err.Error())
	case errors.Is(err, linkingerrors.ErrUnknownWorkflow):
		writeLinkingError(w, http.StatusBadRequest, "unknown_workflow", err.Error())
	default:
		writeLinkingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeOfferDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, offererrors.ErrInvalidOfferInput):
		writeOfferError(w, http.StatusBadRequest, "invalid_offer_input", err.Error())
	case errors.Is(err, offererrors.ErrOfferNotFound):
		writeOfferError(w, http.StatusNotFound, "offer_not_found", err.Error())
	case errors.Is(err, offererrors.ErrOfferNotPending):
		writeOfferError(w, http.StatusConflict, "offer_not_pending", err.Error())
	default:
		writeOfferError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeLinkingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, linkinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeOfferError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, offerhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func offerResponse(offer offerentities.Offer) offerhttp.OfferResponse {
	return offerhttp.OfferResponse{
		OfferID:    offer.OfferID,
		CampaignID: offer.CampaignID,
		BloggerID:  offer.BloggerID,
		Price:      offer.Price,
		Status:     string(offer.Status),
		CreatedAt:  offer.CreatedAt,
		UpdatedAt:  offer.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
