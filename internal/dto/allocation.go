package dto

// AllocateExpertsRequest appends experts to a question's allocation queue,
// order preserved as given.
type AllocateExpertsRequest struct {
	ExpertIDs []string `json:"expertIds" binding:"required,min=1"`
}

// RemoveAllocationRequest identifies the queue slot to remove.
type RemoveAllocationRequest struct {
	Index int `json:"index"`
}

// AutoAllocateResponse reports the toggled flag.
type AutoAllocateResponse struct {
	QuestionID     string `json:"questionId"`
	IsAutoAllocate bool   `json:"isAutoAllocate"`
}
