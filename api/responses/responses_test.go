package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/logger"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccessStatusWrapsData(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"slot": "table-05"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"slot":"table-05"}}`, w.Body.String())
}

func TestWriteErrorStatusAndMessage(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    int
		code      pkgerrors.Code
		message   string
		retryable bool
		details   bool
	}{
		{
			name:    "client fault keeps its own message",
			err:     pkgerrors.New(pkgerrors.CodeQuantityExceeded, "Adicionais allows at most 3").WithDetails(map[string]any{"max": 3}),
			status:  http.StatusUnprocessableEntity,
			code:    pkgerrors.CodeQuantityExceeded,
			message: "Adicionais allows at most 3",
			details: true,
		},
		{
			name:    "unsettled balance",
			err:     pkgerrors.New(pkgerrors.CodeUnsettledBalance, "12.50 still to be paid"),
			status:  http.StatusConflict,
			code:    pkgerrors.CodeUnsettledBalance,
			message: "12.50 still to be paid",
		},
		{
			name:    "not found hides details",
			err:     pkgerrors.New(pkgerrors.CodeNotFound, "no open order for slot").WithDetails(map[string]any{"slot": "tab-17"}),
			status:  http.StatusNotFound,
			code:    pkgerrors.CodeNotFound,
			message: "no open order for slot",
		},
		{
			name:      "persistence shows the public message",
			err:       pkgerrors.Wrap(pkgerrors.CodePersistence, errors.New("dial tcp: refused"), "load order"),
			status:    http.StatusServiceUnavailable,
			code:      pkgerrors.CodePersistence,
			message:   "persistence unavailable",
			retryable: true,
		},
		{
			name:      "untyped error becomes internal",
			err:       errors.New("boom"),
			status:    http.StatusInternalServerError,
			code:      pkgerrors.CodeInternal,
			message:   "internal server error",
			retryable: true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, tc.err)

			assert.Equal(t, tc.status, w.Code)
			apiErr := decodeError(t, w)
			assert.Equal(t, string(tc.code), apiErr.Code)
			assert.Equal(t, tc.message, apiErr.Message)
			assert.Equal(t, tc.retryable, apiErr.Retryable)
			assert.Equal(t, tc.details, apiErr.Details != nil)
		})
	}
}

func TestWriteErrorLogsRejectionWithStep(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf, Format: logger.FormatJSON})

	err := pkgerrors.New(pkgerrors.CodeStateConflict, "order already finalized").
		WithDetails(map[string]any{"step": "payments"})
	WriteError(context.Background(), logg, httptest.NewRecorder(), err)

	line := buf.String()
	assert.Contains(t, line, "request.rejected")
	assert.Contains(t, line, `"step":"payments"`)
	assert.Contains(t, line, `"level":"warn"`)
}

func TestWriteErrorNilFallsBackToInternal(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(pkgerrors.CodeInternal), decodeError(t, w).Code)
}
