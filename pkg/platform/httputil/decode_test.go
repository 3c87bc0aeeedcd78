package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "beneficiary/pkg/domain-errors"
)

type idsRequest struct {
	UserIDs []string `json:"user_ids"`
}

func (r *idsRequest) Normalize() {
	for i, v := range r.UserIDs {
		r.UserIDs[i] = strings.TrimSpace(v)
	}
}

func (r *idsRequest) Validate() error {
	if len(r.UserIDs) == 0 {
		return errors.New("user_ids is required")
	}
	for _, v := range r.UserIDs {
		if v == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "user_ids must not contain blanks")
		}
	}
	return nil
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDecodeJSON(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	tests := []struct {
		name   string
		body   string
		wantOK bool
	}{
		{"valid body", `{"user_ids":["a","b"]}`, true},
		{"malformed json", `{user_ids`, false},
		{"empty body", ``, false},
		{"unknown field", `{"user_ids":["a"],"force":true}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			got, ok := DecodeJSON[idsRequest](w, req, logger, ctx, "req-1")

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.NotNil(t, got)
				assert.Len(t, got.UserIDs, 2)
				return
			}
			assert.Nil(t, got)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "bad_request", decodeBody(t, w)["error"])
		})
	}
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("normalizes before validating", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_ids":[" a "]}`))
		w := httptest.NewRecorder()

		got, ok := DecodeAndPrepare[idsRequest](w, req, logger, ctx, "req-1")

		require.True(t, ok)
		assert.Equal(t, []string{"a"}, got.UserIDs)
	})

	t.Run("plain error becomes validation_error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_ids":[]}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[idsRequest](w, req, logger, ctx, "req-1")

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "validation_error", body["error"])
		assert.Equal(t, "user_ids is required", body["error_description"])
	})

	t.Run("domain error keeps its code", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_ids":["  "]}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[idsRequest](w, req, logger, ctx, "req-1")

		assert.False(t, ok)
		assert.Equal(t, "bad_request", decodeBody(t, w)["error"])
	})
}
