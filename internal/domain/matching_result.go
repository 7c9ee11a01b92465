package domain

// MatchingResult ranks one agent against one request.
type MatchingResult struct {
	ServiceRequestID    string
	AgentID             string
	AgentName           string
	SupportedComplexity int
	Score               float64
	IsRecommended       bool
	Reason              string
}
