package models

import "time"

type Competition struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Date                 Date      `json:"date"`
	Location             string    `json:"location"`
	RegistrationDeadline Date      `json:"registration_deadline"`
	CreatedAt            time.Time `json:"created_at"`
}

// RegistrationOpen reports whether members can still be registered on day.
func (c Competition) RegistrationOpen(day Date) bool {
	return !c.RegistrationDeadline.Before(day)
}

// CompetitionRegistration links a member to a competition with a weigh-in value.
type CompetitionRegistration struct {
	ID            string    `json:"id"`
	CompetitionID string    `json:"competition_id"`
	MemberID      string    `json:"member_id"`
	Weight        float64   `json:"weight"`
	CreatedAt     time.Time `json:"created_at"`
}

// CompetitionResult records up to four ranked members of one poule.
type CompetitionResult struct {
	ID                  string    `json:"id"`
	CompetitionID       string    `json:"competition_id"`
	PouleName           string    `json:"poule_name"`
	FirstPlaceMemberID  *string   `json:"first_place_member_id,omitempty"`
	SecondPlaceMemberID *string   `json:"second_place_member_id,omitempty"`
	ThirdPlaceMemberID  *string   `json:"third_place_member_id,omitempty"`
	FourthPlaceMemberID *string   `json:"fourth_place_member_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// Placements returns the four place slots in rank order.
func (r CompetitionResult) Placements() [4]*string {
	return [4]*string{r.FirstPlaceMemberID, r.SecondPlaceMemberID, r.ThirdPlaceMemberID, r.FourthPlaceMemberID}
}
