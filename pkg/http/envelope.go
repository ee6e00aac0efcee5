package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RunIDKey is the echo context key holding the run a response belongs to.
const RunIDKey = "run_id"

// Handler registers its routes on the server.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// APIResponse is the {status,message,run_id,data} envelope of every endpoint.
// RunID lets polling clients notice a reset between two reads.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	RunID   string      `json:"run_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError is one failed field constraint.
type ValidationError struct {
	Code    string                 `json:"code,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

type ListData struct {
	Rows  interface{} `json:"rows"`
	Total int         `json:"total"`
}

// RunTag stamps every response of the wrapped routes with the current run id.
func RunTag(current func() string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			SetRunID(c, current())
			return next(c)
		}
	}
}

// SetRunID overrides the run id of the response, e.g. with the run a
// projection was actually computed from.
func SetRunID(c echo.Context, runID string) { c.Set(RunIDKey, runID) }

func runIDOf(c echo.Context) string {
	id, _ := c.Get(RunIDKey).(string)
	return id
}

// DataResponse writes the envelope with statusCode as both HTTP and body status.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		RunID:   runIDOf(c),
		Data:    data,
	})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

func ListResponse(c echo.Context, rows interface{}, total int) error {
	return SuccessResponse(c, &ListData{Rows: rows, Total: total})
}

func CreatedResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusCreated, data)
}

func BadRequestResponse(c echo.Context, errs []ValidationError) error {
	return DataResponse(c, http.StatusBadRequest, errs)
}

// AppErrorResponse renders err. AppErrors keep their status, echo errors
// keep their code, anything else becomes a bare 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return DataResponse(c, appErr.Status, []*AppError{appErr})
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return DataResponse(c, he.Code, []ValidationError{{Code: CodeHTTP, Message: http.StatusText(he.Code)}})
	}
	return DataResponse(c, http.StatusInternalServerError, []ValidationError{{Code: CodeInternal, Message: "internal error"}})
}

// ErrorHandler is the echo HTTPErrorHandler for errors escaping handlers.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	_ = AppErrorResponse(c, err)
}
