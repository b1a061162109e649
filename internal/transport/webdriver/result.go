package webdriver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tidwall/gjson"
)

// WebElementID is the reserved key carrying an element reference in a response value.
const WebElementID = "element-6066-11e4-a52e-4f735466cecf"

// FailureStatus is the status every normalized protocol error carries.
const FailureStatus = -1

// ProtocolError is the normalized failure record of one protocol action.
type ProtocolError struct {
	Status         int             `json:"status"`
	Value          json.RawMessage `json:"value"`
	ErrorStatus    any             `json:"errorStatus"`
	Message        string          `json:"error"`
	HTTPStatusCode int             `json:"httpStatusCode"`

	// Err is the transport-level cause when the request never produced a response.
	Err error `json:"-"`
}

func (e *ProtocolError) Error() string {
	return e.Message
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the protocol error code carried in the value, if any.
func (e *ProtocolError) ErrorCode() string {
	if len(e.Value) == 0 {
		return ""
	}

	return gjson.GetBytes(e.Value, "error").String()
}

// IsResultSuccess reports whether body carries a value and no failure status.
// A JSON null value counts as present.
func IsResultSuccess(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}

	if !gjson.GetBytes(body, "value").Exists() {
		return false
	}

	status := gjson.GetBytes(body, "status")

	return status.Type != gjson.Number || status.Num != FailureStatus
}

// GetElementID reads the element reference out of a result value.
func GetElementID(value json.RawMessage) string {
	if len(value) == 0 {
		return ""
	}

	return gjson.GetBytes(value, WebElementID).String()
}

// InvalidWindowReference reports whether value describes a "no such window" error.
func InvalidWindowReference(value json.RawMessage) bool {
	if len(value) == 0 || !gjson.ValidBytes(value) {
		return false
	}

	code := gjson.GetBytes(value, "error")

	return code.Type == gjson.String && code.Str == StatusCodeNoSuchWindow
}

// IsInvalidWindowReference is InvalidWindowReference for an error returned by RunProtocolAction.
func IsInvalidWindowReference(err error) bool {
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		return false
	}

	return InvalidWindowReference(protoErr.Value)
}

// HandleProtocolError normalizes a failed response into a ProtocolError.
//
// The message is picked in order: the body's explicit message, the canonical
// message of a known error code, "Unknown command" for HTTP 404, then a
// generic unknown error.
func HandleProtocolError(body []byte, httpStatusCode int) *ProtocolError {
	var result gjson.Result
	if gjson.ValidBytes(body) {
		result = gjson.ParseBytes(body)
	}

	message := MessageUnknownError
	if httpStatusCode == http.StatusNotFound {
		message = MessageUnknownCommand
	}

	value := result.Get("value")
	if truthy(value) {
		errMessage := value.Get("message")
		errCode := value.Get("error")

		if truthy(errMessage) {
			message = errMessage.String()
		} else if truthy(errCode) {
			if known, ok := Response[errCode.String()]; ok {
				message = known.Message
			}
		}
	}

	protoErr := &ProtocolError{
		Status:         FailureStatus,
		ErrorStatus:    "",
		Message:        message,
		HTTPStatusCode: httpStatusCode,
	}

	if truthy(value) {
		protoErr.Value = json.RawMessage(value.Raw)
	}

	if status := result.Get("status"); truthy(status) {
		protoErr.ErrorStatus = status.Value()
	}

	return protoErr
}

// truthy mirrors how loosely typed clients of the wire protocol test a field.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}
