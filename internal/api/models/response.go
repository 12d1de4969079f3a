package models

// OutcomeResponse is one scenario's terminal result.
type OutcomeResponse struct {
	Scenario   string  `json:"scenario"`
	RunID      string  `json:"run_id,omitempty"`
	State      string  `json:"state"`
	Iterations int     `json:"iterations"`
	Objective  float64 `json:"objective,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// BatchResponse wraps the ordered outcomes of a batch run.
type BatchResponse struct {
	Outcomes []OutcomeResponse `json:"outcomes"`
	Failed   int               `json:"failed"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
