package dto

// CompleteStepRequest records the real completion date of a workflow step.
type CompleteStepRequest struct {
	ActualDate Date `json:"actualDate" binding:"required"`
}

// StepQuery filters assigned-step listings.
type StepQuery struct {
	Status     string `form:"status"`
	Department string `form:"department"`
	Critical   *bool  `form:"critical"`
}
