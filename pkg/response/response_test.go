package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOKT(t *testing.T) {
	r := OKT(map[string]string{"status": "ok"})
	require.Equal(t, APIResponseCodeOK, r.Code)
	require.Equal(t, "ok", r.Message)
	require.Empty(t, r.ErrorCode)

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	require.JSONEq(t, `{"code":0,"message":"ok","data":{"status":"ok"}}`, string(raw))
}

func TestFailT(t *testing.T) {
	r := FailT[any](APIResponseCodeBadRequest, ErrorCodePlanNotFound, "", nil)
	require.Equal(t, "bad request", r.Message)
	require.Equal(t, ErrorCodePlanNotFound, r.ErrorCode)

	r = FailT[any](APIResponseCodeError, ErrorCodeServerError, "store down", nil)
	raw, err := json.Marshal(r)
	require.NoError(t, err)
	require.JSONEq(t, `{"code":50000,"message":"store down","error_code":"SERVER_ERROR","data":null}`, string(raw))
}
