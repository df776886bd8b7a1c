package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/errs"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/event"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/governance"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/stake"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/tier"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/timelock"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/treasury"
)

// Server fronts the governance components over HTTP. It is a thin adapter:
// every rule lives in the components, the server only decodes, dispatches
// and encodes.
type Server struct {
	registry  *governance.Registry
	scheduler *timelock.Scheduler
	treasury  *treasury.Ledger
	stakes    *stake.Ledger
	events    *event.Bus
	logger    *slog.Logger
	router    *mux.Router
	server    *http.Server
}

// NewServer creates a new API server
func NewServer(
	registry *governance.Registry,
	scheduler *timelock.Scheduler,
	treasuryLedger *treasury.Ledger,
	stakes *stake.Ledger,
	events *event.Bus,
	promGatherer prometheus.Gatherer,
	logger *slog.Logger,
	port int,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		registry:  registry,
		scheduler: scheduler,
		treasury:  treasuryLedger,
		stakes:    stakes,
		events:    events,
		logger:    logger,
	}
	s.router = mux.NewRouter()
	s.router.Use(enableCORS)

	// Proposal routes
	s.router.HandleFunc("/api/proposals", s.createProposal).Methods("POST")
	s.router.HandleFunc("/api/proposals", s.listProposals).Methods("GET")
	s.router.HandleFunc("/api/proposals/{id}", s.getProposal).Methods("GET")
	s.router.HandleFunc("/api/proposals/{id}/vote", s.vote).Methods("POST")
	s.router.HandleFunc("/api/proposals/{id}/queue", s.queueProposal).Methods("POST")
	s.router.HandleFunc("/api/proposals/{id}/cancel", s.cancelProposal).Methods("POST")
	s.router.HandleFunc("/api/proposals/{id}/voted/{address}", s.hasVoted).Methods("GET")

	// Delegation routes
	s.router.HandleFunc("/api/delegation", s.delegate).Methods("POST")
	s.router.HandleFunc("/api/delegation/revoke", s.revokeDelegate).Methods("POST")
	s.router.HandleFunc("/api/delegation/{address}", s.getDelegation).Methods("GET")

	// Stake routes
	s.router.HandleFunc("/api/stake/deposit", s.depositStake).Methods("POST")
	s.router.HandleFunc("/api/stake/withdraw", s.withdrawStake).Methods("POST")
	s.router.HandleFunc("/api/stake/{address}", s.getStake).Methods("GET")

	// Timelock routes
	s.router.HandleFunc("/api/schedule/{id}", s.schedule).Methods("POST")
	s.router.HandleFunc("/api/schedule/{id}", s.getSchedule).Methods("GET")
	s.router.HandleFunc("/api/schedule/{id}/execute", s.execute).Methods("POST")
	s.router.HandleFunc("/api/schedule/{id}/cancel", s.cancelSchedule).Methods("POST")
	s.router.HandleFunc("/api/schedule/delay", s.updateDelay).Methods("POST")

	// Treasury routes
	s.router.HandleFunc("/api/treasury", s.getTreasury).Methods("GET")
	s.router.HandleFunc("/api/treasury/paid/{id}", s.getPaid).Methods("GET")
	s.router.HandleFunc("/api/treasury/allocate", s.allocate).Methods("POST")
	s.router.HandleFunc("/api/treasury/rebalance", s.rebalance).Methods("POST")
	s.router.HandleFunc("/api/treasury/caps", s.updateCap).Methods("POST")

	// Observability
	s.router.HandleFunc("/api/events", s.getEvents).Methods("GET")
	if promGatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(promGatherer, promhttp.HandlerOpts{}))
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router returns the HTTP router, mainly for tests
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start runs the HTTP server until Shutdown
func (s *Server) Start() error {
	s.logger.Info("api server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops the HTTP server
func (s *Server) Shutdown() error {
	return s.server.Close()
}

// enableCORS enables CORS for all routes
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type proposalResponse struct {
	ID           uint64 `json:"id"`
	Proposer     string `json:"proposer"`
	Tier         string `json:"tier"`
	Recipient    string `json:"recipient"`
	Amount       string `json:"amount"`
	Description  string `json:"description"`
	ForVotes     string `json:"for_votes"`
	AgainstVotes string `json:"against_votes"`
	AbstainVotes string `json:"abstain_votes"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	State        string `json:"state"`
	DefeatReason string `json:"defeat_reason,omitempty"`
}

func toProposalResponse(p *governance.Proposal) proposalResponse {
	return proposalResponse{
		ID:           p.ID,
		Proposer:     p.Proposer,
		Tier:         p.Tier.String(),
		Recipient:    p.Recipient,
		Amount:       p.Amount.String(),
		Description:  p.Description,
		ForVotes:     p.ForVotes.String(),
		AgainstVotes: p.AgainstVotes.String(),
		AbstainVotes: p.AbstainVotes.String(),
		StartTime:    p.StartTime.Format(time.RFC3339),
		EndTime:      p.EndTime.Format(time.RFC3339),
		State:        p.State.String(),
		DefeatReason: p.DefeatReason,
	}
}

func (s *Server) createProposal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller      string `json:"caller"`
		Tier        string `json:"tier"`
		Recipient   string `json:"recipient"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errs.Validationf("invalid request body"))
		return
	}
	t, err := parseTier(req.Tier)
	if err != nil {
		s.respondError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.respondError(w, err)
		return
	}

	id, err := s.registry.CreateProposal(req.Caller, t, req.Recipient, amount, req.Description)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, map[string]uint64{"id": id})
}

func (s *Server) listProposals(w http.ResponseWriter, r *http.Request) {
	var (
		proposals []*governance.Proposal
		err       error
	)
	if stateName := r.URL.Query().Get("state"); stateName != "" {
		state, perr := parseState(stateName)
		if perr != nil {
			s.respondError(w, perr)
			return
		}
		proposals, err = s.registry.ListProposalsByState(state)
	} else {
		proposals, err = s.registry.ListProposals()
	}
	if err != nil {
		s.respondError(w, err)
		return
	}

	out := make([]proposalResponse, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, toProposalResponse(p))
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Server) getProposal(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	proposal, err := s.registry.Proposal(id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, toProposalResponse(proposal))
}

func (s *Server) vote(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	var req struct {
		Caller string `json:"caller"`
		Choice string `json:"choice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errs.Validationf("invalid request body"))
		return
	}
	choice, err := parseChoice(req.Choice)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.registry.Vote(req.Caller, id, choice); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "voted"})
}

func (s *Server) queueProposal(w http.ResponseWriter, r *http.Request) {
	s.proposalAction(w, r, s.registry.QueueProposal)
}

func (s *Server) cancelProposal(w http.ResponseWriter, r *http.Request) {
	s.proposalAction(w, r, s.registry.CancelProposal)
}

func (s *Server) hasVoted(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	address := mux.Vars(r)["address"]
	voted, err := s.registry.HasVoted(id, address)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]bool{"voted": voted})
}

func (s *Server) delegate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		To     string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errs.Validationf("invalid request body"))
		return
	}
	if err := s.registry.Delegate(req.Caller, req.To); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "delegated"})
}

func (s *Server) revokeDelegate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errs.Validationf("invalid request body"))
		return
	}
	if err := s.registry.RevokeDelegate(req.Caller); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (s *Server) getDelegation(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	to, err := s.registry.DelegateOf(address)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"from": address, "to": to})
}

func (s *Server) depositStake(w http.ResponseWriter, r *http.Request) {
	s.stakeAction(w, r, s.stakes.Deposit)
}

func (s *Server) withdrawStake(w http.ResponseWriter, r *http.Request) {
	s.stakeAction(w, r, s.stakes.Withdraw)
}

func (s *Server) getStake(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	s.respond(w, http.StatusOK, map[string]any{
		"address":      address,
		"stake":        s.stakes.StakeOf(address).String(),
		"power":        s.stakes.PowerOf(address).String(),
		"active_votes": s.stakes.ActiveVotes(address),
		"eligible":     s.stakes.Eligible(address),
	})
}

func (s *Server) schedule(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.scheduler.Schedule(id); err != nil {
		s.respondError(w, err)
		return
	}
	releaseTime, _ := s.scheduler.ReleaseTime(id)
	s.respond(w, http.StatusCreated, map[string]string{
		"release_time": releaseTime.Format(time.RFC3339),
	})
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	releaseTime, err := s.scheduler.ReleaseTime(id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"release_time": releaseTime.Format(time.RFC3339),
		"executed":     s.scheduler.Executed(id),
		"executable":   s.scheduler.IsExecutable(id),
	})
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	s.scheduleAction(w, r, s.scheduler.Execute)
}

func (s *Server) cancelSchedule(w http.ResponseWriter, r *http.Request) {
	s.scheduleAction(w, r, s.scheduler.Cancel)
}

func (s *Server) updateDelay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		Tier   string `json:"tier"`
		Delay  string `json:"delay"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errs.Validationf("invalid request body"))
		return
	}
	t, err := parseTier(req.Tier)
	if err != nil {
		s.respondError(w, err)
		return
	}
	delay, err := time.ParseDuration(req.Delay)
	if err != nil {
		s.respondError(w, errs.Validationf("invalid delay: %v", err))
		return
	}
	if err := s.scheduler.UpdateDelay(req.Caller, t, delay); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) getTreasury(w http.ResponseWriter, r *http.Request) {
	pools := make(map[string]map[string]any, 3)
	for _, t := range []tier.Tier{tier.HighConviction, tier.Experimental, tier.Operational} {
		pools[t.String()] = map[string]any{
			"balance": s.treasury.PoolBalance(t).String(),
			"cap_pct": s.treasury.Cap(t),
		}
	}
	s.respond(w, http.StatusOK, map[string]any{
		"total": s.treasury.Total().String(),
		"pools": pools,
	})
}

func (s *Server) getPaid(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]bool{"paid": s.treasury.Paid(id)})
}

func (s *Server) allocate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		Tier   string `json:"tier"`
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errs.Validationf("invalid request body"))
		return
	}
	t, err := parseTier(req.Tier)
	if err != nil {
		s.respondError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.treasury.Allocate(req.Caller, t, amount); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "allocated"})
}

func (s *Server) rebalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errs.Validationf("invalid request body"))
		return
	}
	if err := s.treasury.Rebalance(req.Caller); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "rebalanced"})
}

func (s *Server) updateCap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		Tier   string `json:"tier"`
		CapPct int64  `json:"cap_pct"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errs.Validationf("invalid request body"))
		return
	}
	t, err := parseTier(req.Tier)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.treasury.UpdateCap(req.Caller, t, req.CapPct); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	var history []event.Event
	if typeName := r.URL.Query().Get("type"); typeName != "" {
		history = s.events.HistoryByType(event.Type(typeName))
	} else {
		history = s.events.History()
	}
	s.respond(w, http.StatusOK, history)
}

func (s *Server) proposalAction(w http.ResponseWriter, r *http.Request, action func(string, uint64) error) {
	id, err := parseID(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	var req struct {
		Caller string `json:"caller"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errs.Validationf("invalid request body"))
		return
	}
	if err := action(req.Caller, id); err != nil {
		s.respondError(w, err)
		return
	}
	proposal, err := s.registry.Proposal(id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, toProposalResponse(proposal))
}

func (s *Server) scheduleAction(w http.ResponseWriter, r *http.Request, action func(string, uint64) error) {
	id, err := parseID(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	var req struct {
		Caller string `json:"caller"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errs.Validationf("invalid request body"))
		return
	}
	if err := action(req.Caller, id); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) stakeAction(w http.ResponseWriter, r *http.Request, action func(string, *big.Int) error) {
	var req struct {
		Caller string `json:"caller"`
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errs.Validationf("invalid request body"))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := action(req.Caller, amount); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, governance.ErrProposalNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, errs.ErrState):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrResource):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrTransfer):
		status = http.StatusBadGateway
	}
	s.respond(w, status, map[string]string{"error": err.Error()})
}

func parseID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, errs.Validationf("invalid proposal id")
	}
	return id, nil
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errs.Validationf("invalid amount %q", raw)
	}
	return amount, nil
}

func parseTier(name string) (tier.Tier, error) {
	switch name {
	case tier.HighConviction.String():
		return tier.HighConviction, nil
	case tier.Experimental.String():
		return tier.Experimental, nil
	case tier.Operational.String():
		return tier.Operational, nil
	default:
		return 0, errs.Validationf("unknown tier %q", name)
	}
}

func parseChoice(name string) (governance.VoteChoice, error) {
	switch name {
	case "for":
		return governance.VoteFor, nil
	case "against":
		return governance.VoteAgainst, nil
	case "abstain":
		return governance.VoteAbstain, nil
	default:
		return 0, errs.Validationf("unknown vote choice %q", name)
	}
}

func parseState(name string) (governance.ProposalState, error) {
	for _, state := range []governance.ProposalState{
		governance.ProposalStateActive,
		governance.ProposalStateDefeated,
		governance.ProposalStateQueued,
		governance.ProposalStateExecuted,
		governance.ProposalStateCancelled,
	} {
		if state.String() == name {
			return state, nil
		}
	}
	return 0, errs.Validationf("unknown proposal state %q", name)
}
