package bundle

import "time"

// Tier is a purchasable session package. Tiers live in code, not the
// database, so changing them is a deploy.
type Tier struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	SessionCount    int    `json:"session_count"`
	DiscountPercent int64  `json:"discount_percent"`
}

func Tiers() []Tier {
	return []Tier{
		{ID: "starter", Name: "Starter Pack", SessionCount: 4, DiscountPercent: 10},
		{ID: "regular", Name: "Regular Pack", SessionCount: 8, DiscountPercent: 15},
		{ID: "intensive", Name: "Intensive Pack", SessionCount: 16, DiscountPercent: 20},
	}
}

func TierByID(id string) (Tier, bool) {
	for _, t := range Tiers() {
		if t.ID == id {
			return t, true
		}
	}
	return Tier{}, false
}

type Bundle struct {
	ID                int       `db:"id" json:"id"`
	StudentID         int       `db:"student_id" json:"student_id"`
	TeacherID         int       `db:"teacher_id" json:"teacher_id"`
	TierID            string    `db:"tier_id" json:"tier_id"`
	Subject           string    `db:"subject" json:"subject"`
	SessionCount      int       `db:"session_count" json:"session_count"`
	SessionsScheduled int       `db:"sessions_scheduled" json:"sessions_scheduled"`
	SessionsCompleted int       `db:"sessions_completed" json:"sessions_completed"`
	TotalCents        int64     `db:"total_cents" json:"total_cents"`
	SessionShareCents int64     `db:"session_share_cents" json:"session_share_cents"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// ShareFor returns the escrow share of the n-th session (1-based). Rounding
// remainder cents land on the last session so shares always sum to the total.
func (b *Bundle) ShareFor(n int) int64 {
	if n >= b.SessionCount {
		return b.TotalCents - b.SessionShareCents*int64(b.SessionCount-1)
	}
	return b.SessionShareCents
}

type PurchaseRequest struct {
	TeacherID int    `json:"teacher_id" binding:"required"`
	TierID    string `json:"tier_id" binding:"required"`
}

type ScheduleRequest struct {
	StartsAt time.Time `json:"starts_at" binding:"required"`
	EndsAt   time.Time `json:"ends_at" binding:"required"`
}
