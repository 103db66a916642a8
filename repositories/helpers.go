package repositories

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/association-portal/gateway"
)

// Table names as exposed by the data API.
const (
	tableAssociations  = "associations"
	tableMembers       = "members"
	tableCompetitions  = "competitions"
	tableRegistrations = "competition_registrations"
	tableResults       = "competition_results"
)

func decodeRows[T any](raws []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode row: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeRow[T any](raw json.RawMessage, into *T) error {
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	return nil
}

// firstOrNotFound decodes the first of raws, or returns notFound when the
// backend matched nothing (or the access rules hid it).
func firstOrNotFound[T any](raws []json.RawMessage, notFound error) (*T, error) {
	if len(raws) == 0 {
		return nil, notFound
	}
	var v T
	if err := decodeRow(raws[0], &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// mapWriteError replaces constraint classes with the repository's own
// sentinel; anything else is returned unchanged.
func mapWriteError(err, conflict, invalidRef error) error {
	switch {
	case conflict != nil && errors.Is(err, gateway.ErrConflict):
		return fmt.Errorf("%w: %v", conflict, err)
	case invalidRef != nil && errors.Is(err, gateway.ErrInvalidReference):
		return fmt.Errorf("%w: %v", invalidRef, err)
	}
	return err
}
