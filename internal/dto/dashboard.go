package dto

// DashboardSummary aggregates workflow counters for the moderator dashboard.
type DashboardSummary struct {
	QuestionsByStatus map[string]int  `json:"questionsByStatus"`
	PendingReroutes   int             `json:"pendingReroutes"`
	PendingRequests   int             `json:"pendingRequests"`
	ExpertWorkload    []ExpertLoad    `json:"expertWorkload"`
	ReviewThroughput  ReviewThroughput `json:"reviewThroughput"`
}

// ExpertLoad pairs an expert with the number of queue turns awaiting them.
type ExpertLoad struct {
	ExpertID  string `json:"expertId"`
	Email     string `json:"email"`
	WaitingOn int    `json:"waitingOn"`
}

// ReviewThroughput counts terminal review outcomes over the trailing window.
type ReviewThroughput struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Rerouted int `json:"rerouted"`
}
