package models

// DashboardState is what the dashboard view shows after a load.
type DashboardState struct {
	Loading      bool          `json:"loading"`
	Association  *Association  `json:"association"`
	Members      []Member      `json:"members"`
	Competitions []Competition `json:"competitions"`
	// Degraded lists the load steps that failed; their data is left empty.
	Degraded []string `json:"degraded,omitempty"`
}

// AdminDashboardState is the admin overview.
type AdminDashboardState struct {
	Loading              bool          `json:"loading"`
	UpcomingCompetitions []Competition `json:"upcoming_competitions"`
	Degraded             []string      `json:"degraded,omitempty"`
}
