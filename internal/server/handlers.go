package server

import (
	"net/http"

	"github.com/florin-app/florin/internal/common"
	"github.com/florin-app/florin/internal/model"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.engine.CreateSession(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tx, err := s.transactionFromRequest(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, _, err := s.engine.ApplyTransaction(r.Context(), sessionID(r), tx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) transactionFromRequest(req transactionRequest) (model.Transaction, error) {
	if req.Date == "" {
		return model.Transaction{}, common.NewValidationError("date", "must not be empty")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return model.Transaction{}, err
	}
	typ, err := model.ParseTransactionType(req.Type)
	if err != nil {
		return model.Transaction{}, err
	}
	return model.Transaction{
		Date:         date,
		Amount:       req.Amount,
		Type:         typ,
		ExternalIBAN: req.ExternalIBAN,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
	}, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 20)
	category := queryInt64(r, "category")

	txs, err := s.engine.ListTransactions(r.Context(), sessionID(r), offset, limit, category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tx, err := s.engine.GetTransaction(r.Context(), sessionID(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tx, err := s.transactionFromRequest(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.engine.UpdateTransaction(r.Context(), sessionID(r), id, tx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.DeleteTransaction(r.Context(), sessionID(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct {
		CategoryID int64 `json:"category_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tx, err := s.engine.AssignCategory(r.Context(), sessionID(r), id, req.CategoryID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.engine.CreateCategory(r.Context(), sessionID(r), model.Category{Name: req.Name})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryResponse{ID: c.ID, Name: c.Name})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.engine.ListCategories(r.Context(), sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.engine.GetCategory(r.Context(), sessionID(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryResponse{ID: c.ID, Name: c.Name})
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.engine.UpdateCategory(r.Context(), sessionID(r), id, model.Category{Name: req.Name})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryResponse{ID: c.ID, Name: c.Name})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.DeleteCategory(r.Context(), sessionID(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) categoryRuleFromRequest(req categoryRuleRequest) (model.CategoryRule, error) {
	// The original API distinguishes a missing pattern (invalid) from an
	// empty one (wildcard), so the patterns arrive as pointers.
	if req.Description == nil {
		return model.CategoryRule{}, common.NewValidationError("description", "must not be null")
	}
	if req.IBAN == nil {
		return model.CategoryRule{}, common.NewValidationError("iBAN", "must not be null")
	}
	typ, err := model.ParseTransactionType(req.Type)
	if err != nil {
		return model.CategoryRule{}, err
	}
	return model.CategoryRule{
		Description:    *req.Description,
		IBAN:           *req.IBAN,
		Type:           typ,
		CategoryID:     req.CategoryID,
		ApplyOnHistory: req.ApplyOnHistory,
	}, nil
}

func (s *Server) handleCreateCategoryRule(w http.ResponseWriter, r *http.Request) {
	var req categoryRuleRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rule, err := s.categoryRuleFromRequest(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, _, err := s.engine.ApplyCategoryRule(r.Context(), sessionID(r), rule)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryRuleResponse(created))
}

func (s *Server) handleListCategoryRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.engine.ListCategoryRules(r.Context(), sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]categoryRuleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toCategoryRuleResponse(rule))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCategoryRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rule, err := s.engine.GetCategoryRule(r.Context(), sessionID(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryRuleResponse(rule))
}

func (s *Server) handleUpdateCategoryRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req categoryRuleRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rule, err := s.categoryRuleFromRequest(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.engine.UpdateCategoryRule(r.Context(), sessionID(r), id, rule)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryRuleResponse(updated))
}

func (s *Server) handleDeleteCategoryRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.DeleteCategoryRule(r.Context(), sessionID(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
