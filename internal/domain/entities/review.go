package entities

import (
	"strings"
)

// Review is written by a user about a place
type Review struct {
	Base
	PlaceID string `json:"place_id" db:"place_id"`
	UserID  string `json:"user_id" db:"user_id"`
	Text    string `json:"text" db:"text"`
}

// NewReview creates a review of placeID by userID
func NewReview(placeID, userID, text string) *Review {
	return &Review{Base: NewBase(), PlaceID: placeID, UserID: userID, Text: text}
}

func (r *Review) Kind() Kind { return KindReview }

func (r *Review) Validate() error {
	switch {
	case strings.TrimSpace(r.Text) == "":
		return missing("text")
	case r.PlaceID == "":
		return missing("place_id")
	case r.UserID == "":
		return missing("user_id")
	case tooLong(r.Text, MaxTextLength):
		return invalid("text")
	}
	return nil
}

func (r *Review) Clone() Entity {
	c := *r
	return &c
}

func (r *Review) References() map[string]string {
	return map[string]string{"place_id": r.PlaceID, "user_id": r.UserID}
}

// ReviewInput is the client payload for a review. place_id and user_id are
// fixed after creation.
type ReviewInput struct {
	UserID *string `json:"user_id"`
	Text   *string `json:"text"`
}

func (in *ReviewInput) MissingForCreate() string {
	switch {
	case in.UserID == nil:
		return "user_id"
	case in.Text == nil:
		return "text"
	}
	return ""
}

func (in *ReviewInput) Apply(e Entity) error {
	r, ok := e.(*Review)
	if !ok {
		return kindMismatch(KindReview, e)
	}
	if in.Text != nil {
		r.Text = *in.Text
	}
	return nil
}
