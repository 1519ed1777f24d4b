// Package department defines the wire contract between the gateway and
// department services. Both sides import this module so the payload
// shapes and header names cannot drift apart.
package department

// Correlation headers attached to every delegated call.
const (
	HeaderCitizenToken = "X-Citizen-Token"
	HeaderRequestID    = "X-Request-Id"
	HeaderCitizenID    = "X-Citizen-Id"
)

// NotifyPath is the fixed path departments expose for decision
// notifications.
const NotifyPath = "/internal/update-status"

// SubmitPayload is the body of a delegated citizen submission.
type SubmitPayload struct {
	RequestID    string         `json:"requestId"`
	ServiceID    string         `json:"serviceId"`
	ServiceName  string         `json:"serviceName"`
	CitizenID    string         `json:"citizenId"`
	CitizenName  string         `json:"citizenName"`
	CitizenEmail string         `json:"citizenEmail"`
	Data         map[string]any `json:"data"`
}

// SubmitResponse is what a department may return synchronously. All
// fields are optional: an empty body acknowledges receipt without
// declaring a status.
type SubmitResponse struct {
	Status       string         `json:"status,omitempty"`
	Remarks      string         `json:"remarks,omitempty"`
	ResponseData map[string]any `json:"responseData,omitempty"`
}

// StatusUpdatePayload is the body of a decision notification. The
// response is not consumed.
type StatusUpdatePayload struct {
	RequestID   string `json:"requestId"`
	Status      string `json:"status"`
	Remarks     string `json:"remarks"`
	ProcessedBy string `json:"processedBy"`
}
