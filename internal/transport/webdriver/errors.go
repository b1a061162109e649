package webdriver

import "net/http"

// Error codes defined by the W3C WebDriver specification.
const (
	StatusCodeDetachedShadowRoot      = "detached shadow root"
	StatusCodeElementClickIntercepted = "element click intercepted"
	StatusCodeElementNotInteractable  = "element not interactable"
	StatusCodeInsecureCertificate     = "insecure certificate"
	StatusCodeInvalidArgument         = "invalid argument"
	StatusCodeInvalidCookieDomain     = "invalid cookie domain"
	StatusCodeInvalidElementState     = "invalid element state"
	StatusCodeInvalidSelector         = "invalid selector"
	StatusCodeInvalidSessionID        = "invalid session id"
	StatusCodeJavaScriptError         = "javascript error"
	StatusCodeMoveTargetOutOfBounds   = "move target out of bounds"
	StatusCodeNoSuchAlert             = "no such alert"
	StatusCodeNoSuchCookie            = "no such cookie"
	StatusCodeNoSuchElement           = "no such element"
	StatusCodeNoSuchFrame             = "no such frame"
	StatusCodeNoSuchShadowRoot        = "no such shadow root"
	StatusCodeNoSuchWindow            = "no such window"
	StatusCodeScriptTimeout           = "script timeout"
	StatusCodeSessionNotCreated       = "session not created"
	StatusCodeStaleElementReference   = "stale element reference"
	StatusCodeTimeout                 = "timeout"
	StatusCodeUnableToSetCookie       = "unable to set cookie"
	StatusCodeUnableToCaptureScreen   = "unable to capture screen"
	StatusCodeUnexpectedAlertOpen     = "unexpected alert open"
	StatusCodeUnknownCommand          = "unknown command"
	StatusCodeUnknownError            = "unknown error"
	StatusCodeUnknownMethod           = "unknown method"
	StatusCodeUnsupportedOperation    = "unsupported operation"
)

const (
	MessageUnknownCommand = "Unknown command"
	MessageUnknownError   = "An unknown error has occurred."
)

// ErrorResponse is the canonical description of a protocol error code.
type ErrorResponse struct {
	HTTPStatus int
	Message    string
}

// Response maps every known error code to its canonical message.
var Response = map[string]ErrorResponse{
	StatusCodeDetachedShadowRoot: {
		HTTPStatus: http.StatusNotFound,
		Message:    "A command failed because the referenced shadow root is no longer attached to the DOM.",
	},
	StatusCodeElementClickIntercepted: {
		HTTPStatus: http.StatusBadRequest,
		Message:    "The element click command could not be completed because another element is receiving the click event.",
	},
	StatusCodeElementNotInteractable: {
		HTTPStatus: http.StatusBadRequest,
		Message:    "A command could not be completed because the element is not pointer- or keyboard interactable.",
	},
	StatusCodeInsecureCertificate: {
		HTTPStatus: http.StatusBadRequest,
		Message:    "Navigation caused the user agent to hit a certificate warning, which is usually the result of an expired or invalid TLS certificate.",
	},
	StatusCodeInvalidArgument: {
		HTTPStatus: http.StatusBadRequest,
		Message:    "The arguments passed to a command are either invalid or malformed.",
	},
	StatusCodeInvalidCookieDomain: {
		HTTPStatus: http.StatusBadRequest,
		Message:    "An illegal attempt was made to set a cookie under a different domain than the current page.",
	},
	StatusCodeInvalidElementState: {
		HTTPStatus: http.StatusBadRequest,
		Message:    "A command could not be completed because the element is in an invalid state.",
	},
	StatusCodeInvalidSelector: {
		HTTPStatus: http.StatusBadRequest,
		Message:    "Argument was an invalid selector.",
	},
	StatusCodeInvalidSessionID: {
		HTTPStatus: http.StatusNotFound,
		Message:    "The session is either terminated or not started.",
	},
	StatusCodeJavaScriptError: {
		HTTPStatus: http.StatusInternalServerError,
		Message:    "An error occurred while executing JavaScript supplied by the user.",
	},
	StatusCodeMoveTargetOutOfBounds: {
		HTTPStatus: http.StatusInternalServerError,
		Message:    "The target for mouse interaction is not in the browser's viewport and cannot be brought into that viewport.",
	},
	StatusCodeNoSuchAlert: {
		HTTPStatus: http.StatusNotFound,
		Message:    "An attempt was made to operate on a modal dialog when one was not open.",
	},
	StatusCodeNoSuchCookie: {
		HTTPStatus: http.StatusNotFound,
		Message:    "No cookie matching the given path name was found amongst the associated cookies of the current document.",
	},
	StatusCodeNoSuchElement: {
		HTTPStatus: http.StatusNotFound,
		Message:    "An element could not be located on the page using the given search parameters.",
	},
	StatusCodeNoSuchFrame: {
		HTTPStatus: http.StatusNotFound,
		Message:    "A command to switch to a frame could not be satisfied because the frame could not be found.",
	},
	StatusCodeNoSuchShadowRoot: {
		HTTPStatus: http.StatusNotFound,
		Message:    "The element does not have a shadow root.",
	},
	StatusCodeNoSuchWindow: {
		HTTPStatus: http.StatusNotFound,
		Message:    "A request to switch to a different window could not be satisfied because the window could not be found.",
	},
	StatusCodeScriptTimeout: {
		HTTPStatus: http.StatusInternalServerError,
		Message:    "A script did not complete before its timeout expired.",
	},
	StatusCodeSessionNotCreated: {
		HTTPStatus: http.StatusInternalServerError,
		Message:    "A new session could not be created.",
	},
	StatusCodeStaleElementReference: {
		HTTPStatus: http.StatusNotFound,
		Message:    "The element reference is stale; either the element is no longer attached to the DOM or the page has been refreshed.",
	},
	StatusCodeTimeout: {
		HTTPStatus: http.StatusInternalServerError,
		Message:    "An operation did not complete before its timeout expired.",
	},
	StatusCodeUnableToSetCookie: {
		HTTPStatus: http.StatusInternalServerError,
		Message:    "A request to set a cookie's value could not be satisfied.",
	},
	StatusCodeUnableToCaptureScreen: {
		HTTPStatus: http.StatusInternalServerError,
		Message:    "A screen capture was made impossible.",
	},
	StatusCodeUnexpectedAlertOpen: {
		HTTPStatus: http.StatusInternalServerError,
		Message:    "A modal dialog was open, blocking this operation.",
	},
	StatusCodeUnknownCommand: {
		HTTPStatus: http.StatusNotFound,
		Message:    "A command could not be executed because the remote end is not aware of it.",
	},
	StatusCodeUnknownError: {
		HTTPStatus: http.StatusInternalServerError,
		Message:    "An unknown error occurred in the remote end while processing the command.",
	},
	StatusCodeUnknownMethod: {
		HTTPStatus: http.StatusMethodNotAllowed,
		Message:    "The requested command matched a known URL but did not match a method for that URL.",
	},
	StatusCodeUnsupportedOperation: {
		HTTPStatus: http.StatusInternalServerError,
		Message:    "A command that should have executed properly cannot be supported for some reason.",
	},
}
