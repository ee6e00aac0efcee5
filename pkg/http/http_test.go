package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name  string `json:"name" validate:"required"`
	Limit int    `query:"limit" default:"50" validate:"gte=1,lte=100"`
	Day   string `json:"day" validate:"omitempty,datetime=2006-01-02"`
}

func TestValidateAppliesDefaults(t *testing.T) {
	req := &sampleRequest{Name: "x"}
	assert.Nil(t, Validate(context.Background(), req))
	assert.Equal(t, 50, req.Limit)
}

func TestValidateReportsWireNames(t *testing.T) {
	errs := Validate(context.Background(), &sampleRequest{Limit: 500, Day: "01/02/2024"})
	require.Len(t, errs, 3)

	byField := map[string]ValidationError{}
	for _, e := range errs {
		byField[e.Field] = e
	}
	assert.Equal(t, "ERR_REQUIRED", byField["name"].Code)
	assert.Equal(t, "ERR_LTE", byField["limit"].Code)
	assert.Equal(t, "100", byField["limit"].Params["max"])
	assert.Equal(t, "ERR_DATETIME", byField["day"].Code)
}

func TestReadAndValidateRequestBindsQuery(t *testing.T) {
	e := echo.New()
	r := httptest.NewRequest(http.MethodPost, "/?limit=7", strings.NewReader(`{"name":"abc"}`))
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(r, httptest.NewRecorder())

	req := &sampleRequest{}
	assert.Nil(t, ReadAndValidateRequest(c, req))
	assert.Equal(t, "abc", req.Name)
}

func TestAppErrorResponseUsesStatus(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, AppErrorResponse(c, NotFoundErrorf("unknown ticker %q", "ZZZ")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 404, body.Status)
	require.Len(t, body.Data, 1)
	assert.Equal(t, CodeNotFound, body.Data[0].Code)
}

func TestRunTagStampsEnvelope(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error {
		return SuccessResponse(c, "ok")
	}, RunTag(func() string { return "run-1" }))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusOK, body.Status)
	assert.Equal(t, "run-1", body.RunID)
	assert.Equal(t, "ok", body.Data)
}

func TestAppErrorMatchesByCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFoundErrorf("entity %q not found", "ZZZ"))
	assert.ErrorIs(t, err, &AppError{Code: CodeNotFound})
	assert.NotErrorIs(t, err, &AppError{Code: CodeUpstream})

	upstream := BadGatewayError("settings store unavailable").WithError(errors.New("dial"))
	assert.Equal(t, "ERR_UPSTREAM: settings store unavailable: dial", upstream.Error())
}

func TestClientSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":"bad"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient()
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, &out))
	assert.True(t, out.OK)

	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodPost, URL: srv.URL, Body: map[string]int{"a": 1}}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnprocessableEntity, se.StatusCode)
}
