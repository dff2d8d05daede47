package dispute

import "time"

type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// Resolution is the admin's ruling on an open dispute.
type Resolution string

const (
	ResolutionReleaseToTeacher Resolution = "release_to_teacher"
	ResolutionRefundStudent    Resolution = "refund_student"
	ResolutionSplit            Resolution = "split"
)

type Dispute struct {
	ID            int        `db:"id" json:"id"`
	BookingID     int        `db:"booking_id" json:"booking_id"`
	RaisedBy      int        `db:"raised_by" json:"raised_by"`
	Reason        string     `db:"reason" json:"reason"`
	Status        Status     `db:"status" json:"status"`
	Resolution    *Resolution `db:"resolution" json:"resolution,omitempty"`
	RefundPercent *int64     `db:"refund_percent" json:"refund_percent,omitempty"`
	ResolvedBy    *int       `db:"resolved_by" json:"resolved_by,omitempty"`
	AdminNote     *string    `db:"admin_note" json:"admin_note,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt    *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

type RaiseRequest struct {
	Reason string `json:"reason" binding:"required,min=10,max=2000"`
}

type ResolveRequest struct {
	Resolution    Resolution `json:"resolution" binding:"required,oneof=release_to_teacher refund_student split"`
	RefundPercent *int64     `json:"refund_percent,omitempty" binding:"omitempty,min=1,max=99"`
	AdminNote     string     `json:"admin_note,omitempty" binding:"max=2000"`
}
