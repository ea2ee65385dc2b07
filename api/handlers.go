package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"girinhas/domain/entities"
	"girinhas/domain/interfaces"
)

// TradeService is the application surface the handlers depend on
type TradeService interface {
	RegisterAccount(ctx context.Context, username string) (*entities.Account, error)
	CreditAccount(ctx context.Context, accountID, amount int64) (*entities.Lot, error)
	Transfer(ctx context.Context, fromAccountID, toAccountID, amount int64) (*entities.TransferReceipt, error)
	PublishItem(ctx context.Context, ownerAccountID int64, title string, price int64) (*entities.Item, error)
	GetItem(ctx context.Context, itemID int64) (*entities.Item, error)
	Claim(ctx context.Context, itemID, claimantID, amount int64) (*interfaces.ClaimResult, error)
	Cancel(ctx context.Context, reservationID, actorID int64) (bool, error)
	Confirm(ctx context.Context, reservationID int64, code string, actorID int64) (*entities.TransferReceipt, error)
	GetReservation(ctx context.Context, reservationID, actorID int64) (*entities.Reservation, error)
	QueuePosition(ctx context.Context, itemID, accountID int64) (int, error)
	LeaveQueue(ctx context.Context, itemID, accountID int64) (bool, error)
	WalletSummary(ctx context.Context, accountID int64) (*entities.WalletSummary, error)
	ListTransactions(ctx context.Context, accountID int64, limit, offset int) ([]*entities.Transaction, error)
}

// Handler serves the marketplace HTTP API
type Handler struct {
	trades   TradeService
	tokens   *TokenManager
	validate *validator.Validate
}

// NewHandler creates a new API handler
func NewHandler(trades TradeService, tokens *TokenManager) *Handler {
	return &Handler{
		trades:   trades,
		tokens:   tokens,
		validate: validator.New(),
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid "+name)
		return 0, false
	}
	return id, true
}

func authedAccount(w http.ResponseWriter, r *http.Request) (int64, bool) {
	accountID, ok := AccountIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
	}
	return accountID, ok
}

// ---------- accounts ----------

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
}

type registerResponse struct {
	Account accountResponse `json:"account"`
	Token   string          `json:"token"`
}

type accountResponse struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	Balance          int64     `json:"balance"`
	SpendableBalance int64     `json:"spendable_balance"`
	CreatedAt        time.Time `json:"created_at"`
}

func newAccountResponse(account *entities.Account) accountResponse {
	return accountResponse{
		ID:               account.ID,
		Username:         account.Username,
		Balance:          account.Balance,
		SpendableBalance: account.SpendableBalance,
		CreatedAt:        account.CreatedAt,
	}
}

// Register creates an account and returns its bearer token
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.trades.RegisterAccount(r.Context(), req.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := h.tokens.Issue(account.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "token generation failed")
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Account: newAccountResponse(account),
		Token:   token,
	})
}

// ---------- wallet ----------

type walletResponse struct {
	AccountID           int64                `json:"account_id"`
	Balance             int64                `json:"balance"`
	SpendableBalance    int64                `json:"spendable_balance"`
	HeldAmount          int64                `json:"held_amount"`
	UpcomingExpirations []lotExpirationEntry `json:"upcoming_expirations"`
}

type lotExpirationEntry struct {
	LotID     int64     `json:"lot_id"`
	Remaining int64     `json:"remaining"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Wallet returns the authenticated account's balances
func (h *Handler) Wallet(w http.ResponseWriter, r *http.Request) {
	accountID, ok := authedAccount(w, r)
	if !ok {
		return
	}

	summary, err := h.trades.WalletSummary(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	expirations := make([]lotExpirationEntry, 0, len(summary.UpcomingExpirations))
	for _, e := range summary.UpcomingExpirations {
		expirations = append(expirations, lotExpirationEntry{
			LotID:     e.LotID,
			Remaining: e.Remaining,
			ExpiresAt: e.ExpiresAt,
		})
	}

	writeJSON(w, http.StatusOK, walletResponse{
		AccountID:           summary.AccountID,
		Balance:             summary.Balance,
		SpendableBalance:    summary.SpendableBalance,
		HeldAmount:          summary.HeldAmount,
		UpcomingExpirations: expirations,
	})
}

type transactionResponse struct {
	ID                    int64     `json:"id"`
	TransferID            *string   `json:"transfer_id,omitempty"`
	CounterpartyAccountID *int64    `json:"counterparty_account_id,omitempty"`
	ItemID                *int64    `json:"item_id,omitempty"`
	Kind                  string    `json:"kind"`
	Amount                int64     `json:"amount"`
	SignedAmount          int64     `json:"signed_amount"`
	BalanceAfter          int64     `json:"balance_after"`
	CreatedAt             time.Time `json:"created_at"`
}

func newTransactionResponse(txn *entities.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:                    txn.ID,
		CounterpartyAccountID: txn.CounterpartyAccountID,
		ItemID:                txn.ItemID,
		Kind:                  string(txn.Kind),
		Amount:                txn.Amount,
		SignedAmount:          txn.SignedAmount(),
		BalanceAfter:          txn.BalanceAfter,
		CreatedAt:             txn.CreatedAt,
	}
	if txn.TransferID != nil {
		id := txn.TransferID.String()
		resp.TransferID = &id
	}
	return resp
}

// Transactions returns the authenticated account's ledger history
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := authedAccount(w, r)
	if !ok {
		return
	}

	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	txns, err := h.trades.ListTransactions(r.Context(), accountID, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]transactionResponse, 0, len(txns))
	for _, txn := range txns {
		responses = append(responses, newTransactionResponse(txn))
	}
	writeJSON(w, http.StatusOK, responses)
}

type transferRequest struct {
	ToAccountID int64 `json:"to_account_id" validate:"required,gt=0"`
	Amount      int64 `json:"amount" validate:"required,gt=0"`
}

type receiptResponse struct {
	TransferID string              `json:"transfer_id"`
	Debit      transactionResponse `json:"debit"`
	Credit     transactionResponse `json:"credit"`
}

func newReceiptResponse(receipt *entities.TransferReceipt) receiptResponse {
	return receiptResponse{
		TransferID: receipt.TransferID.String(),
		Debit:      newTransactionResponse(receipt.Debit),
		Credit:     newTransactionResponse(receipt.Credit),
	}
}

// Transfer moves girinhas from the authenticated account to another
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	accountID, ok := authedAccount(w, r)
	if !ok {
		return
	}

	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}

	receipt, err := h.trades.Transfer(r.Context(), accountID, req.ToAccountID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReceiptResponse(receipt))
}

type creditRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

type creditResponse struct {
	LotID     int64     `json:"lot_id"`
	Amount    int64     `json:"amount"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Credit grants girinhas to an account. Operator endpoint.
func (h *Handler) Credit(w http.ResponseWriter, r *http.Request) {
	if _, ok := authedAccount(w, r); !ok {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req creditRequest
	if !h.decode(w, r, &req) {
		return
	}

	lot, err := h.trades.CreditAccount(r.Context(), accountID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, creditResponse{
		LotID:     lot.ID,
		Amount:    lot.Amount,
		ExpiresAt: lot.ExpiresAt,
	})
}

// ---------- items ----------

type publishItemRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
	Price int64  `json:"price" validate:"required,gt=0"`
}

type itemResponse struct {
	ID             int64     `json:"id"`
	OwnerAccountID int64     `json:"owner_account_id"`
	Title          string    `json:"title"`
	Price          int64     `json:"price"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

func newItemResponse(item *entities.Item) itemResponse {
	return itemResponse{
		ID:             item.ID,
		OwnerAccountID: item.OwnerAccountID,
		Title:          item.Title,
		Price:          item.Price,
		Status:         string(item.Status),
		CreatedAt:      item.CreatedAt,
	}
}

// PublishItem lists a new item owned by the authenticated account
func (h *Handler) PublishItem(w http.ResponseWriter, r *http.Request) {
	accountID, ok := authedAccount(w, r)
	if !ok {
		return
	}

	var req publishItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	item, err := h.trades.PublishItem(r.Context(), accountID, req.Title, req.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newItemResponse(item))
}

// GetItem returns one item
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.trades.GetItem(r.Context(), itemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newItemResponse(item))
}

// ---------- claims and queue ----------

type claimRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

type claimResponse struct {
	Reservation *reservationResponse `json:"reservation,omitempty"`
	QueueEntry  *queueEntryResponse  `json:"queue_entry,omitempty"`
}

type queueEntryResponse struct {
	ItemID   int64     `json:"item_id"`
	Position int       `json:"position"`
	JoinedAt time.Time `json:"joined_at"`
}

type reservationResponse struct {
	ID                int64      `json:"id"`
	ItemID            int64      `json:"item_id"`
	ClaimantAccountID int64      `json:"claimant_account_id"`
	OwnerAccountID    int64      `json:"owner_account_id"`
	AmountHeld        int64      `json:"amount_held"`
	Status            string     `json:"status"`
	ConfirmationCode  string     `json:"confirmation_code,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ExpiresAt         time.Time  `json:"expires_at"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
}

func newReservationResponse(reservation *entities.Reservation) *reservationResponse {
	return &reservationResponse{
		ID:                reservation.ID,
		ItemID:            reservation.ItemID,
		ClaimantAccountID: reservation.ClaimantAccountID,
		OwnerAccountID:    reservation.OwnerAccountID,
		AmountHeld:        reservation.AmountHeld,
		Status:            string(reservation.Status),
		ConfirmationCode:  reservation.ConfirmationCode,
		CreatedAt:         reservation.CreatedAt,
		ExpiresAt:         reservation.ExpiresAt,
		ResolvedAt:        reservation.ResolvedAt,
	}
}

// Claim requests an item for the authenticated account
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	accountID, ok := authedAccount(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req claimRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.trades.Claim(r.Context(), itemID, accountID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := claimResponse{}
	if result.Reservation != nil {
		resp.Reservation = newReservationResponse(result.Reservation)
	}
	if result.QueueEntry != nil {
		resp.QueueEntry = &queueEntryResponse{
			ItemID:   result.QueueEntry.ItemID,
			Position: result.QueueEntry.Position,
			JoinedAt: result.QueueEntry.JoinedAt,
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// QueuePosition returns the authenticated account's place in an item's queue
func (h *Handler) QueuePosition(w http.ResponseWriter, r *http.Request) {
	accountID, ok := authedAccount(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	position, err := h.trades.QueuePosition(r.Context(), itemID, accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"position": position})
}

// LeaveQueue withdraws the authenticated account from an item's queue
func (h *Handler) LeaveQueue(w http.ResponseWriter, r *http.Request) {
	accountID, ok := authedAccount(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	left, err := h.trades.LeaveQueue(r.Context(), itemID, accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"left": left})
}

// ---------- reservations ----------

// GetReservation returns a reservation visible to the authenticated account
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	accountID, ok := authedAccount(w, r)
	if !ok {
		return
	}
	reservationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	reservation, err := h.trades.GetReservation(r.Context(), reservationID, accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReservationResponse(reservation))
}

// CancelReservation cancels a pending reservation
func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	accountID, ok := authedAccount(w, r)
	if !ok {
		return
	}
	reservationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	cancelled, err := h.trades.Cancel(r.Context(), reservationID, accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

type confirmRequest struct {
	Code string `json:"code" validate:"required"`
}

// ConfirmReservation settles a reservation with the confirmation code
func (h *Handler) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	accountID, ok := authedAccount(w, r)
	if !ok {
		return
	}
	reservationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req confirmRequest
	if !h.decode(w, r, &req) {
		return
	}

	receipt, err := h.trades.Confirm(r.Context(), reservationID, req.Code, accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReceiptResponse(receipt))
}
