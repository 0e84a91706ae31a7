package db

import (
	"context"
)

type CategoryStat struct {
	Category  string `json:"category"`
	Total     int64  `json:"total"`
	Available int64  `json:"available"`
	Taken     int64  `json:"taken"`
}

type Stats struct {
	ToolsTotal       int64          `json:"tools_total"`
	ToolsAvailable   int64          `json:"tools_available"`
	ToolsTaken       int64          `json:"tools_taken"`
	UsersTotal       int64          `json:"users_total"`
	UsersActive      int64          `json:"users_active"`
	UsersInactive    int64          `json:"users_inactive"`
	ActiveRequests   int64          `json:"active_requests"`
	OverdueRequests  int64          `json:"overdue_requests"`
	ReturnedRequests int64          `json:"returned_requests"`
	Categories       []CategoryStat `json:"categories"`
}

// UncategorizedLabel groups tools with an empty category.
const UncategorizedLabel = "Other"

func (r *Repo) Stats(ctx context.Context) (*Stats, error) {
	db := r.DB.WithContext(ctx)
	var s Stats

	var tools struct {
		ToolsTotal     int64
		ToolsAvailable int64
		ToolsTaken     int64
	}
	if err := db.Raw(`
		SELECT COUNT(*) AS tools_total,
		       COUNT(*) FILTER (WHERE is_available) AS tools_available,
		       COUNT(*) FILTER (WHERE NOT is_available) AS tools_taken
		FROM tools`).Scan(&tools).Error; err != nil {
		return nil, translate(err, "tool stats")
	}
	s.ToolsTotal, s.ToolsAvailable, s.ToolsTaken = tools.ToolsTotal, tools.ToolsAvailable, tools.ToolsTaken

	var users struct {
		UsersTotal    int64
		UsersActive   int64
		UsersInactive int64
	}
	if err := db.Raw(`
		SELECT COUNT(*) AS users_total,
		       COUNT(*) FILTER (WHERE is_active) AS users_active,
		       COUNT(*) FILTER (WHERE NOT is_active) AS users_inactive
		FROM users`).Scan(&users).Error; err != nil {
		return nil, translate(err, "user stats")
	}
	s.UsersTotal, s.UsersActive, s.UsersInactive = users.UsersTotal, users.UsersActive, users.UsersInactive

	var reqs struct {
		ActiveRequests   int64
		OverdueRequests  int64
		ReturnedRequests int64
	}
	if err := db.Raw(`
		SELECT COUNT(*) FILTER (WHERE status = 'approved') AS active_requests,
		       COUNT(*) FILTER (WHERE status = 'approved' AND expected_return_time < NOW()) AS overdue_requests,
		       COUNT(*) FILTER (WHERE status = 'returned') AS returned_requests
		FROM requests`).Scan(&reqs).Error; err != nil {
		return nil, translate(err, "request stats")
	}
	s.ActiveRequests, s.OverdueRequests, s.ReturnedRequests = reqs.ActiveRequests, reqs.OverdueRequests, reqs.ReturnedRequests

	if err := db.Raw(`
		SELECT COALESCE(NULLIF(category, ''), ?) AS category,
		       COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE is_available) AS available,
		       COUNT(*) FILTER (WHERE NOT is_available) AS taken
		FROM tools
		GROUP BY 1
		ORDER BY 1`, UncategorizedLabel).Scan(&s.Categories).Error; err != nil {
		return nil, translate(err, "category stats")
	}
	return &s, nil
}
