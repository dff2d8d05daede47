package availability

import (
	"context"
	"errors"
	"sort"
	"time"

	"tutorslot/internal/user"
)

var (
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidDate     = errors.New("invalid date, expected YYYY-MM-DD")
	ErrTeacherNotFound = errors.New("teacher not found")
	ErrInvalidRule     = errors.New("rule end must be after start")
)

type Service interface {
	Slots(ctx context.Context, teacherID int, date, viewerTZ string) ([]Slot, error)
	IsBookable(ctx context.Context, teacherID int, start, end time.Time) (bool, error)
	CreateRule(ctx context.Context, teacherID int, req CreateRuleRequest) (*Rule, error)
	ListRules(ctx context.Context, teacherID int) ([]Rule, error)
	DeleteRule(ctx context.Context, teacherID, ruleID int) error
	CreateException(ctx context.Context, teacherID int, req CreateExceptionRequest) (*Exception, error)
	DeleteException(ctx context.Context, teacherID, exceptionID int) error
}

type service struct {
	repo     Repository
	userRepo user.Repository

	sessionDuration time.Duration
	slotIncrement   time.Duration
	minLeadTime     time.Duration
	now             func() time.Time
}

func NewService(repo Repository, userRepo user.Repository, sessionMinutes, incrementMinutes, leadMinutes int) Service {
	return &service{
		repo:            repo,
		userRepo:        userRepo,
		sessionDuration: time.Duration(sessionMinutes) * time.Minute,
		slotIncrement:   time.Duration(incrementMinutes) * time.Minute,
		minLeadTime:     time.Duration(leadMinutes) * time.Minute,
		now:             time.Now,
	}
}

func (s *service) CreateRule(ctx context.Context, teacherID int, req CreateRuleRequest) (*Rule, error) {
	if req.EndMinute <= req.StartMinute {
		return nil, ErrInvalidRule
	}
	return s.repo.CreateRule(ctx, teacherID, req.Weekday, req.StartMinute, req.EndMinute)
}

func (s *service) ListRules(ctx context.Context, teacherID int) ([]Rule, error) {
	return s.repo.RulesForTeacher(ctx, teacherID)
}

func (s *service) DeleteRule(ctx context.Context, teacherID, ruleID int) error {
	return s.repo.DeleteRule(ctx, teacherID, ruleID)
}

func (s *service) CreateException(ctx context.Context, teacherID int, req CreateExceptionRequest) (*Exception, error) {
	if !req.EndsAt.After(req.StartsAt) {
		return nil, ErrInvalidRule
	}
	return s.repo.CreateException(ctx, teacherID, req)
}

func (s *service) DeleteException(ctx context.Context, teacherID, exceptionID int) error {
	return s.repo.DeleteException(ctx, teacherID, exceptionID)
}

// Slots derives bookable slots for one viewer-local calendar day. All
// interval arithmetic runs on UTC instants; the viewer timezone is used only
// to bound the day and to render labels. A day without rules yields an empty
// list, not an error.
func (s *service) Slots(ctx context.Context, teacherID int, date, viewerTZ string) ([]Slot, error) {
	loc, err := time.LoadLocation(viewerTZ)
	if err != nil {
		return nil, ErrInvalidTimezone
	}

	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, ErrInvalidDate
	}

	profile, err := s.userRepo.GetTeacherProfile(ctx, teacherID)
	if err != nil {
		return nil, ErrTeacherNotFound
	}
	if profile.VacationMode {
		return []Slot{}, nil
	}

	windowStart := day.UTC()
	windowEnd := day.AddDate(0, 0, 1).UTC()

	free, err := s.freeIntervals(ctx, teacherID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	earliest := s.now().UTC().Add(s.minLeadTime)

	slots := []Slot{}
	for _, iv := range free {
		for t := alignUp(iv.Start, s.slotIncrement); !t.Add(s.sessionDuration).After(iv.End); t = t.Add(s.slotIncrement) {
			if t.Before(earliest) {
				continue
			}
			local := t.In(loc)
			slots = append(slots, Slot{
				StartsAt:  t,
				EndsAt:    t.Add(s.sessionDuration),
				Label:     local.Format("15:04"),
				LocalDate: local.Format("2006-01-02"),
			})
		}
	}

	return slots, nil
}

// IsBookable reports whether [start, end) falls entirely inside the
// teacher's free availability. It does not reserve anything; the final
// booking insert re-validates under the database constraint.
func (s *service) IsBookable(ctx context.Context, teacherID int, start, end time.Time) (bool, error) {
	profile, err := s.userRepo.GetTeacherProfile(ctx, teacherID)
	if err != nil {
		return false, ErrTeacherNotFound
	}
	if profile.VacationMode {
		return false, nil
	}

	start = start.UTC()
	end = end.UTC()

	if start.Before(s.now().UTC().Add(s.minLeadTime)) {
		return false, nil
	}

	free, err := s.freeIntervals(ctx, teacherID, start, end)
	if err != nil {
		return false, err
	}

	for _, iv := range free {
		if !iv.Start.After(start) && !iv.End.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

// freeIntervals resolves recurring rules over [from, to), then subtracts
// exceptions and non-terminal bookings.
func (s *service) freeIntervals(ctx context.Context, teacherID int, from, to time.Time) ([]Interval, error) {
	rules, err := s.repo.RulesForTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}

	var open []Interval
	for cursor := from.Truncate(24 * time.Hour); cursor.Before(to); cursor = cursor.Add(24 * time.Hour) {
		for _, rule := range rules {
			if rule.Weekday != int(cursor.Weekday()) {
				continue
			}
			iv := Interval{
				Start: cursor.Add(time.Duration(rule.StartMinute) * time.Minute),
				End:   cursor.Add(time.Duration(rule.EndMinute) * time.Minute),
			}
			iv = clip(iv, from, to)
			if iv.Start.Before(iv.End) {
				open = append(open, iv)
			}
		}
	}
	if len(open) == 0 {
		return nil, nil
	}

	busy, err := s.busyIntervals(ctx, teacherID, from, to)
	if err != nil {
		return nil, err
	}

	var free []Interval
	for _, iv := range open {
		free = append(free, subtract(iv, busy)...)
	}
	return free, nil
}

func (s *service) busyIntervals(ctx context.Context, teacherID int, from, to time.Time) ([]Interval, error) {
	excs, err := s.repo.ExceptionsOverlapping(ctx, teacherID, from, to)
	if err != nil {
		return nil, err
	}

	bookings, err := s.repo.BusyIntervals(ctx, teacherID, from, to)
	if err != nil {
		return nil, err
	}

	busy := make([]Interval, 0, len(excs)+len(bookings))
	for _, e := range excs {
		busy = append(busy, Interval{Start: e.StartsAt.UTC(), End: e.EndsAt.UTC()})
	}
	for _, b := range bookings {
		busy = append(busy, Interval{Start: b.Start.UTC(), End: b.End.UTC()})
	}

	return merge(busy), nil
}

func clip(iv Interval, from, to time.Time) Interval {
	if iv.Start.Before(from) {
		iv.Start = from
	}
	if iv.End.After(to) {
		iv.End = to
	}
	return iv
}

// alignUp rounds t up to the next multiple of step within its UTC day.
func alignUp(t time.Time, step time.Duration) time.Time {
	day := t.Truncate(24 * time.Hour)
	offset := t.Sub(day)
	if rem := offset % step; rem != 0 {
		offset += step - rem
	}
	return day.Add(offset)
}

func merge(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start.Before(ivs[j].Start) })

	merged := []Interval{ivs[0]}
	for _, iv := range ivs[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// subtract removes every busy interval from iv. Busy must be merged and
// sorted, which busyIntervals guarantees.
func subtract(iv Interval, busy []Interval) []Interval {
	out := []Interval{}
	cur := iv
	for _, b := range busy {
		if b.End.Before(cur.Start) || b.End.Equal(cur.Start) {
			continue
		}
		if b.Start.After(cur.End) || b.Start.Equal(cur.End) {
			break
		}
		if b.Start.After(cur.Start) {
			out = append(out, Interval{Start: cur.Start, End: b.Start})
		}
		if b.End.After(cur.End) {
			return out
		}
		cur.Start = b.End
	}
	if cur.Start.Before(cur.End) {
		out = append(out, cur)
	}
	return out
}
