// Package normalize converts arbitrary raw error values into a
// domain.NormalizedError.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/vietddude/invoker/internal/core/domain"
)

// Coder is implemented by errors that carry a domain code.
type Coder interface {
	Code() string
}

// StatusCoder is implemented by errors that carry an HTTP-style status code.
type StatusCoder interface {
	StatusCode() int
}

// Normalize converts raw into a NormalizedError. It never panics and the
// returned Message is never empty.
func Normalize(raw any) (n domain.NormalizedError) {
	defer func() {
		if r := recover(); r != nil {
			n = domain.NormalizedError{Message: domain.FallbackMessage}
		}
	}()

	n = normalize(raw)
	if strings.TrimSpace(n.Message) == "" {
		n.Message = domain.FallbackMessage
	}
	return n
}

// Message returns only the normalized message of raw.
func Message(raw any) string {
	return Normalize(raw).Message
}

func normalize(raw any) domain.NormalizedError {
	switch v := raw.(type) {
	case nil:
		return domain.NormalizedError{}
	case string:
		return domain.NormalizedError{Message: v}
	case *domain.AppError:
		if v == nil {
			return domain.NormalizedError{}
		}
		return domain.NormalizedError{Message: v.Error(), Code: v.Code, StatusCode: v.StatusCode}
	case error:
		return fromError(v)
	case proto.Message:
		return domain.NormalizedError{Message: marshalProto(v)}
	case map[string]any:
		return fromObject(v)
	case map[string]string:
		obj := make(map[string]any, len(v))
		for k, s := range v {
			obj[k] = s
		}
		return fromObject(obj)
	default:
		return domain.NormalizedError{}
	}
}

func fromError(err error) domain.NormalizedError {
	var appErr *domain.AppError
	if errors.As(err, &appErr) && appErr != nil {
		return domain.NormalizedError{Message: err.Error(), Code: appErr.Code, StatusCode: appErr.StatusCode}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return domain.NormalizedError{Message: pgErr.Message, Code: pgErr.Code}
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK {
		return fromStatus(st)
	}

	n := domain.NormalizedError{Message: safeError(err)}
	var coder Coder
	if errors.As(err, &coder) {
		n.Code = coder.Code()
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		n.StatusCode = sc.StatusCode()
	}
	return n
}

func fromStatus(st *status.Status) domain.NormalizedError {
	n := domain.NormalizedError{
		Message:    st.Message(),
		Code:       st.Code().String(),
		StatusCode: httpStatus(st.Code()),
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetReason() != "" {
			n.Code = info.GetReason()
			break
		}
	}
	return n
}

// fromObject prefers a "message" field, then an "error" field, then the whole
// object as JSON.
func fromObject(obj map[string]any) domain.NormalizedError {
	n := domain.NormalizedError{}
	if msg := fieldText(obj, "message"); msg != "" {
		n.Message = msg
	} else if e := fieldText(obj, "error"); e != "" {
		n.Message = e
	} else if data, err := json.Marshal(obj); err == nil {
		n.Message = string(data)
	}
	if code, ok := obj["code"].(string); ok {
		n.Code = code
	}
	switch sc := obj["statusCode"].(type) {
	case int:
		n.StatusCode = sc
	case float64:
		n.StatusCode = int(sc)
	}
	return n
}

// fieldText returns the text of obj[key], or "" when it is absent or blank.
func fieldText(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return ""
	}
	text := stringify(v)
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return text
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return safeError(t)
	case map[string]any, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}

func marshalProto(m proto.Message) string {
	data, err := protojson.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}

// safeError guards against Error methods on nil receivers.
func safeError(err error) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = ""
		}
	}()
	return err.Error()
}

func httpStatus(c codes.Code) int {
	switch c {
	case codes.InvalidArgument, codes.OutOfRange, codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Canceled:
		return 499
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
