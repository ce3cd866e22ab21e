package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteJSON(rec, http.StatusCreated, Envelope{"ok": true, "count": 2}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true,"count":2}`, rec.Body.String())
}

func TestWriteJSONUnmarshalableValue(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteJSON(rec, http.StatusOK, Envelope{"bad": make(chan int)})
	require.Error(t, err)
	assert.Empty(t, rec.Body.String(), "nothing must be written on a marshal failure")
}
