package daemonmsg

const (
	CodeBadRequest   = 400
	CodeUnknownRoot  = 404
	CodeInternal     = 500
	CodeUnsupported  = 501
	CodeDaemonClosed = 503
)

// Error answers a request that the daemon could not serve.
type Error struct {
	RequestId string `json:"rid"`
	Code      int    `json:"cod"`
	Message   string `json:"msg"`
}

func (e *Error) CorrelationID() string { return e.RequestId }

func (e *Error) Error() string { return e.Message }

func NewError(requestID string, code int, msg string) *Message {
	return New(MsgError, &Error{
		RequestId: requestID,
		Code:      code,
		Message:   msg,
	})
}
