package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pokeclass/pokeclass/internal/reports"
	"github.com/pokeclass/pokeclass/internal/security"
	"github.com/pokeclass/pokeclass/internal/services"
	"github.com/pokeclass/pokeclass/pkg/errors"
	"github.com/pokeclass/pokeclass/pkg/logger"
)

// Handler holds every service the HTTP surface exposes.
type Handler struct {
	coins      *services.CoinService
	credits    *services.CreditService
	collection *services.CollectionService
	shop       *services.ShopService
	mystery    *services.MysteryBallService
	teacher    *services.TeacherService
	exporter   *reports.Exporter
	jwtSecret  string
}

func NewHandler(
	coins *services.CoinService,
	credits *services.CreditService,
	collection *services.CollectionService,
	shop *services.ShopService,
	mystery *services.MysteryBallService,
	teacher *services.TeacherService,
	exporter *reports.Exporter,
	jwtSecret string,
) *Handler {
	return &Handler{
		coins:      coins,
		credits:    credits,
		collection: collection,
		shop:       shop,
		mystery:    mystery,
		teacher:    teacher,
		exporter:   exporter,
		jwtSecret:  jwtSecret,
	}
}

// ---- student endpoints ----

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	studentID, ok := h.studentFromPath(w, r)
	if !ok {
		return
	}
	coins, err := h.coins.GetBalance(studentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{StudentID: studentID, Coins: coins})
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	studentID, ok := h.studentFromPath(w, r)
	if !ok {
		return
	}
	history, err := h.coins.GetHistory(studentID, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	studentID, ok := h.studentFromPath(w, r)
	if !ok {
		return
	}
	entries, err := h.collection.GetCollection(studentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.collection.GetCatalog()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	studentID, ok := h.studentFromPath(w, r)
	if !ok {
		return
	}
	var req purchaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.shop.PurchasePokemon(studentID, req.PokemonID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) MysteryStatus(w http.ResponseWriter, r *http.Request) {
	studentID, ok := h.studentFromPath(w, r)
	if !ok {
		return
	}
	available, err := h.mystery.CanAttempt(studentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attemptResponse{StudentID: studentID, Available: available})
}

func (h *Handler) MysteryRoll(w http.ResponseWriter, r *http.Request) {
	studentID, ok := h.studentFromPath(w, r)
	if !ok {
		return
	}
	result, err := h.mystery.Roll(studentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) MysteryHistory(w http.ResponseWriter, r *http.Request) {
	studentID, ok := h.studentFromPath(w, r)
	if !ok {
		return
	}
	draws, err := h.mystery.GetHistory(studentID, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, drawResponses(draws))
}

// ---- teacher endpoints ----

func (h *Handler) AwardCoins(w http.ResponseWriter, r *http.Request) {
	var req coinMutationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session := sessionFrom(r.Context())
	balance, err := h.teacher.AwardCoins(session.UserID, req.StudentID, req.Amount, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{StudentID: req.StudentID, Coins: balance})
}

func (h *Handler) RemoveCoins(w http.ResponseWriter, r *http.Request) {
	var req coinMutationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session := sessionFrom(r.Context())
	balance, err := h.teacher.RemoveCoins(session.UserID, req.StudentID, req.Amount, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{StudentID: req.StudentID, Coins: balance})
}

func (h *Handler) AwardPokemon(w http.ResponseWriter, r *http.Request) {
	var req pokemonAwardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session := sessionFrom(r.Context())
	entry, err := h.teacher.AwardPokemon(session.UserID, req.StudentID, req.PokemonID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) RemovePokemon(w http.ResponseWriter, r *http.Request) {
	entryID, err := pathID(r, "entryID")
	if err != nil {
		writeError(w, err)
		return
	}
	session := sessionFrom(r.Context())
	if err := h.teacher.RemovePokemon(session.UserID, entryID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetCredits(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	credit, err := h.credits.GetBalance(session.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creditBalanceResponse{
		TeacherID:   credit.TeacherID,
		Credits:     credit.Credits,
		UsedCredits: credit.UsedCredits,
		Unlimited:   credit.Unlimited,
	})
}

func (h *Handler) GetCreditTransactions(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	history, err := h.credits.GetHistory(session.UserID, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// ---- admin endpoints ----

func (h *Handler) AddCredits(w http.ResponseWriter, r *http.Request) {
	var req addCreditsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	balance, err := h.credits.AddCredits(req.TeacherID, req.Amount, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creditBalanceResponse{TeacherID: req.TeacherID, Credits: balance})
}

func (h *Handler) MintToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	switch req.Role {
	case security.RoleStudent, security.RoleTeacher, security.RoleAdmin:
	default:
		writeError(w, errors.New(errors.ErrCodeValidation, "unknown role"))
		return
	}
	token, err := security.GenerateToken(req.UserID, req.Role, h.jwtSecret)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// ExportLedger streams the full transaction workbook. The file is built
// into a temp dir and removed once sent.
func (h *Handler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "pokeclass-report")
	if err != nil {
		writeError(w, errors.Wrap(err, errors.ErrCodeInternalError, "failed to prepare report"))
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "ledger.xlsx")
	if err := h.exporter.ExportLedger(path); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.xlsx"`)
	http.ServeFile(w, r, path)
}

// ---- helpers ----

// studentFromPath parses {studentID} and enforces that the caller may act
// on that account.
func (h *Handler) studentFromPath(w http.ResponseWriter, r *http.Request) (uint, bool) {
	studentID, err := pathID(r, "studentID")
	if err != nil {
		writeError(w, err)
		return 0, false
	}
	if !canActFor(sessionFrom(r.Context()), studentID) {
		writeError(w, errors.New(errors.ErrCodeForbidden, "cannot act on another student's account"))
		return 0, false
	}
	return studentID, true
}

func pathID(r *http.Request, param string) (uint, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New(errors.ErrCodeValidation, "invalid id in path")
	}
	return uint(id), nil
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, errors.New(errors.ErrCodeValidation, "invalid JSON body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	message := "internal error"
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		message = appErr.Message
	}
	writeJSON(w, statusFor(code), errorResponse{Error: errorBody{Code: code, Message: message}})
}

// statusFor maps error codes onto HTTP statuses.
func statusFor(code string) int {
	switch code {
	case errors.ErrCodeValidation:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeInsufficientFunds, errors.ErrCodePaymentFailed:
		return http.StatusPaymentRequired
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeAlreadyExists, errors.ErrCodeAttemptUsed:
		return http.StatusConflict
	case errors.ErrCodeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
