package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// RemoteError is any failure talking to the campaign store: a transport
// error (StatusCode 0) or a non-2xx response.
type RemoteError struct {
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Detail)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the store.
func IsNotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.StatusCode == http.StatusNotFound
}

// detail extracts the message of an error body; the store answers
// {"detail": "..."} and validation failures as {"detail": [{"msg": ...}]}.
func detail(body []byte) string {
	var withString struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &withString) == nil && withString.Detail != "" {
		return withString.Detail
	}
	var withList struct {
		Detail []struct {
			Msg string `json:"msg"`
		} `json:"detail"`
	}
	if json.Unmarshal(body, &withList) == nil && len(withList.Detail) > 0 {
		return withList.Detail[0].Msg
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
