package server

import (
	"net/http"

	"github.com/florin-app/florin/internal/model"
)

const (
	defaultInterval  = "month"
	defaultIntervals = 24
)

func (s *Server) handleBalanceHistory(w http.ResponseWriter, r *http.Request) {
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = defaultInterval
	}
	count := queryInt(r, "intervals", defaultIntervals)

	candles, err := s.engine.CandlestickHistory(r.Context(), sessionID(r), interval, count)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCandlestickResponses(candles))
}

func (s *Server) handleCreateSavingGoal(w http.ResponseWriter, r *http.Request) {
	var req savingGoalRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	goal, err := s.engine.CreateSavingGoal(r.Context(), sessionID(r), model.SavingGoal{
		Name:               req.Name,
		Goal:               req.Goal,
		SavePerMonth:       req.SavePerMonth,
		MinBalanceRequired: req.MinBalanceRequired,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSavingGoalResponse(goal))
}

func (s *Server) handleListSavingGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.engine.ListSavingGoals(r.Context(), sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]savingGoalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toSavingGoalResponse(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteSavingGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.DeleteSavingGoal(r.Context(), sessionID(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreatePaymentRequest(w http.ResponseWriter, r *http.Request) {
	var req paymentRequestRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.engine.CreatePaymentRequest(r.Context(), sessionID(r), model.PaymentRequest{
		Description:      req.Description,
		DueDate:          due,
		Amount:           req.Amount,
		NumberOfRequests: req.NumberOfRequests,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.paymentRequestResponse(r, created)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPaymentRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.engine.ListPaymentRequests(r.Context(), sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]paymentRequestResponse, 0, len(reqs))
	for _, pr := range reqs {
		resp, err := s.paymentRequestResponse(r, pr)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) paymentRequestResponse(r *http.Request, pr model.PaymentRequest) (paymentRequestResponse, error) {
	matched, err := s.engine.MatchedTransactions(r.Context(), sessionID(r), pr.ID)
	if err != nil {
		return paymentRequestResponse{}, err
	}
	return paymentRequestResponse{
		ID:               pr.ID,
		Description:      pr.Description,
		DueDate:          formatDate(pr.DueDate),
		Amount:           pr.Amount,
		NumberOfRequests: pr.NumberOfRequests,
		Filled:           pr.Filled,
		Transactions:     toTransactionResponses(matched),
	}, nil
}

func (s *Server) handleCreateMessageRule(w http.ResponseWriter, r *http.Request) {
	var req messageRuleRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	typ, err := model.ParseMessageType(req.Type)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rule, err := s.engine.CreateMessageRule(r.Context(), sessionID(r), model.MessageRule{
		Type:       typ,
		Value:      req.Value,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageRuleResponse{
		ID:         rule.ID,
		Type:       string(rule.Type),
		Value:      rule.Value,
		CategoryID: rule.CategoryID,
	})
}

func (s *Server) handleListMessageRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.engine.ListMessageRules(r.Context(), sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]messageRuleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, messageRuleResponse{
			ID:         rule.ID,
			Type:       string(rule.Type),
			Value:      rule.Value,
			CategoryID: rule.CategoryID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	// Unread only by default; ?all=true returns the full history.
	unreadOnly := r.URL.Query().Get("all") != "true"
	msgs, err := s.engine.ListMessages(r.Context(), sessionID(r), unreadOnly)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageResponses(msgs))
}

func (s *Server) handleMarkMessageRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.MarkMessageRead(r.Context(), sessionID(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
