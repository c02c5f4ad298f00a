package api

import (
	"time"

	"github.com/pokeclass/pokeclass/internal/models"
)

type coinMutationRequest struct {
	StudentID uint   `json:"student_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
}

type pokemonAwardRequest struct {
	StudentID uint `json:"student_id"`
	PokemonID uint `json:"pokemon_id"`
}

type purchaseRequest struct {
	PokemonID uint `json:"pokemon_id"`
}

type addCreditsRequest struct {
	TeacherID uint   `json:"teacher_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
}

type tokenRequest struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type balanceResponse struct {
	StudentID uint  `json:"student_id"`
	Coins     int64 `json:"coins"`
}

type creditBalanceResponse struct {
	TeacherID   uint  `json:"teacher_id"`
	Credits     int64 `json:"credits"`
	UsedCredits int64 `json:"used_credits"`
	Unlimited   bool  `json:"unlimited"`
}

type attemptResponse struct {
	StudentID uint `json:"student_id"`
	Available bool `json:"available"`
}

type drawResponse struct {
	Outcome    string    `json:"outcome"`
	PokemonID  uint      `json:"pokemon_id,omitempty"`
	CoinAmount int64     `json:"coin_amount,omitempty"`
	Applied    bool      `json:"applied"`
	DrawnAt    time.Time `json:"drawn_at"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func drawResponses(draws []models.MysteryBallDraw) []drawResponse {
	out := make([]drawResponse, 0, len(draws))
	for _, d := range draws {
		out = append(out, drawResponse{
			Outcome:    d.Outcome,
			PokemonID:  d.PokemonID,
			CoinAmount: d.CoinAmount,
			Applied:    d.Applied,
			DrawnAt:    d.CreatedAt,
		})
	}
	return out
}
