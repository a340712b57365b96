// Package apierror turns the failure shapes seen by the backup console into
// a single human readable message.
//
// Every failure is classified exactly once, at the point where it enters the
// service, into a Classified value. Downstream code switches on its Kind
// instead of probing the shape again.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"
)

const maxBodySize = 1 << 20

// APIError is returned by the backup REST client for non-2xx responses.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	Body    []byte `json:"-"`
}

func (e *APIError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("api call failed with status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api call to %s failed with status %d: %s", e.URL, e.Status, e.Message)
}

// GenericError mirrors the loosely typed {"error":{"code":..,"message":..}}
// payload returned by the storage backends.
type GenericError struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// FromResponse reads resp.Body and builds the typed error for it. The
// message is taken from the body ("message", then "error.message") and
// falls back to the status text.
func FromResponse(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))

	message := bodyMessage(body)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	if message == "" {
		message = resp.Status
	}

	apiErr := &APIError{
		Status:  resp.StatusCode,
		Message: message,
		Body:    body,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		apiErr.URL = resp.Request.URL.String()
	}
	return apiErr
}

func bodyMessage(body []byte) string {
	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return ""
	}
	if message, err := obj.GetString("message"); err == nil && message != "" {
		return message
	}
	if message, err := obj.GetString("error", "message"); err == nil && message != "" {
		return message
	}
	return ""
}

type Kind int

const (
	KindUnclassified Kind = iota
	KindAPI
	KindGeneric
)

func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindGeneric:
		return "generic"
	default:
		return "unclassified"
	}
}

// Classified is the tagged form of a failure. Code and Message are set for
// KindAPI and KindGeneric, Text for KindUnclassified.
type Classified struct {
	Kind    Kind
	Code    string
	Message string
	Text    string
}

func (c Classified) String() string {
	switch c.Kind {
	case KindAPI, KindGeneric:
		return fmt.Sprintf("Api call finished with status code %s and message: %s", c.Code, c.Message)
	default:
		return "Error during api call: " + c.Text
	}
}

// Normalize never fails: anything unrecognised ends up as an unclassified
// message.
func Normalize(v any) string {
	return Classify(v).String()
}

func Classify(v any) Classified {
	switch e := v.(type) {
	case Classified:
		return e
	case APIError:
		return classifiedAPI(&e)
	case *APIError:
		if e != nil {
			return classifiedAPI(e)
		}
	case GenericError:
		return classifiedGeneric(strconv.Itoa(e.Error.Code), e.Error.Message)
	case *GenericError:
		if e != nil {
			return classifiedGeneric(strconv.Itoa(e.Error.Code), e.Error.Message)
		}
	case json.RawMessage:
		return ClassifyJSON(e)
	case []byte:
		return ClassifyJSON(e)
	case string:
		return Classified{Kind: KindUnclassified, Text: e}
	case error:
		var apiErr *APIError
		if errors.As(e, &apiErr) {
			return classifiedAPI(apiErr)
		}
		return Classified{Kind: KindUnclassified, Text: e.Error()}
	}

	if m, ok := stringKeyed(v); ok {
		if c, ok := classifyMap(m); ok {
			return c
		}
	}
	return Classified{Kind: KindUnclassified, Text: fmt.Sprint(v)}
}

// ClassifyJSON classifies a raw failure report. An object carrying a numeric
// status and a message is a typed API error; an object whose "error" member
// has both "code" and "message" keys is a generic error. A JSON string is
// taken verbatim and anything else is kept as raw text.
func ClassifyJSON(body []byte) Classified {
	if obj, err := jason.NewObjectFromBytes(body); err == nil {
		if status, err := obj.GetInt64("status"); err == nil {
			if message, err := obj.GetValue("message"); err == nil {
				return Classified{Kind: KindAPI, Code: strconv.FormatInt(status, 10), Message: valueText(message)}
			}
		}

		code, codeErr := obj.GetValue("error", "code")
		message, messageErr := obj.GetValue("error", "message")
		if codeErr == nil && messageErr == nil {
			return classifiedGeneric(valueText(code), valueText(message))
		}
	}

	if value, err := jason.NewValueFromBytes(body); err == nil {
		if s, err := value.String(); err == nil {
			return Classified{Kind: KindUnclassified, Text: s}
		}
	}

	return Classified{Kind: KindUnclassified, Text: strings.TrimSpace(string(body))}
}

// classifyMap checks key presence only, the values may have any type.
func classifyMap(m map[string]any) (Classified, bool) {
	inner, ok := stringKeyed(m["error"])
	if !ok {
		return Classified{}, false
	}

	code, hasCode := inner["code"]
	message, hasMessage := inner["message"]
	if !hasCode || !hasMessage {
		return Classified{}, false
	}
	return classifiedGeneric(fmt.Sprint(code), fmt.Sprint(message)), true
}

// stringKeyed views any map with string keys as map[string]any.
func stringKeyed(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}

	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

func classifiedAPI(e *APIError) Classified {
	return Classified{Kind: KindAPI, Code: strconv.Itoa(e.Status), Message: e.Message}
}

func classifiedGeneric(code, message string) Classified {
	return Classified{Kind: KindGeneric, Code: code, Message: message}
}

func valueText(v *jason.Value) string {
	if s, err := v.String(); err == nil {
		return s
	}
	if n, err := v.Number(); err == nil {
		return n.String()
	}
	b, _ := v.Marshal()
	return string(b)
}
