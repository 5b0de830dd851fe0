package error

import "net/http"

// ConfigurationError is returned when the gateway URL or token is missing.
type ConfigurationError string

func (err ConfigurationError) Error() string {
	return string(err)
}

func (err ConfigurationError) ErrCode() string {
	return "CONFIGURATION_ERROR"
}

func (err ConfigurationError) StatusCode() int {
	return http.StatusPreconditionFailed
}

// TransportError wraps a failed call to the WhatsApp gateway.
type TransportError string

func (err TransportError) Error() string {
	return string(err)
}

func (err TransportError) ErrCode() string {
	return "GATEWAY_ERROR"
}

func (err TransportError) StatusCode() int {
	return http.StatusBadGateway
}
