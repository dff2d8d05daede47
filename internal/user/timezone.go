package user

import (
	"errors"
	"time"
)

var ErrInvalidTimezone = errors.New("invalid timezone")

func loadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	return loc, nil
}
