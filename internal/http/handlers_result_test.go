package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/consultd/internal/domain/model"
)

func TestReceiveResult(t *testing.T) {
	rec := &fakeReconciler{}
	router := NewRouter(RouterServices{Reconciler: rec, Logger: discardLogger()})

	body := `{
		"account_id": "op-1",
		"s_index": 3,
		"v_id": "C1",
		"q_id": "Q1",
		"summary": "doing well",
		"result": 1,
		"fail_code": 0,
		"unexpected": {"nested": true}
	}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/consult/result", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rec.payloads, 1)
	p := rec.payloads[0]
	assert.Equal(t, "C1", p.ContactID)
	require.NotNil(t, p.SessionIndex)
	assert.Equal(t, 3, *p.SessionIndex)
	require.NotNil(t, p.Summary)
	assert.Equal(t, "doing well", *p.Summary)
	assert.Nil(t, p.NeedHuman)

	var ev model.StatusEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	assert.Equal(t, model.JobStateCompleted, ev.State)
}

func TestReceiveResult_MissingFieldsStillAccepted(t *testing.T) {
	rec := &fakeReconciler{}
	router := NewRouter(RouterServices{Reconciler: rec, Logger: discardLogger()})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/consult/result", strings.NewReader(`{"v_id":"C1"}`)))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rec.payloads, 1)
	assert.Nil(t, rec.payloads[0].SessionIndex)
}

func TestReceiveResult_Undecodable(t *testing.T) {
	tests := map[string]string{
		"truncated":  `{"v_id":`,
		"wrong type": `{"v_id":"C1","s_index":"three"}`,
		"empty":      ``,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := &fakeReconciler{}
			router := NewRouter(RouterServices{Reconciler: rec, Logger: discardLogger()})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/consult/result", strings.NewReader(body)))

			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, rec.payloads)
		})
	}
}
