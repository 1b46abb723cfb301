package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestProtocolError_Message(t *testing.T) {
	for code, label := range FailureCodes {
		t.Run(label, func(t *testing.T) {
			err := &ProtocolError{Status: code, Label: label}
			want := fmt.Sprintf("composer Error (%d): %s", code, label)
			if err.Error() != want {
				t.Errorf("expected %q, got %q", want, err.Error())
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status     int
		body       string
		wantFail   bool
		wantResult bool
		wantDecode bool
	}{
		{400, `{"error":"bad"}`, true, true, false},
		{404, ``, true, false, false},
		{500, `<html>oops</html>`, true, false, true},
		{200, `{}`, false, false, false},
		{204, ``, false, false, false},
		{302, ``, false, false, false},
		{418, `teapot`, false, false, false},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			perr, decodeErr := classify(tc.status, []byte(tc.body))
			if (perr != nil) != tc.wantFail {
				t.Fatalf("failure = %v, want %v", perr != nil, tc.wantFail)
			}
			if !tc.wantFail {
				return
			}
			if perr.Status != tc.status || perr.Label != FailureCodes[tc.status] {
				t.Errorf("unexpected error %+v", perr)
			}
			if (perr.Result != nil) != tc.wantResult {
				t.Errorf("result = %v, want present=%v", perr.Result, tc.wantResult)
			}
			if (decodeErr != nil) != tc.wantDecode {
				t.Errorf("decodeErr = %v, want present=%v", decodeErr, tc.wantDecode)
			}
			if string(perr.Body) != tc.body {
				t.Errorf("expected raw body %q, got %q", tc.body, perr.Body)
			}
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	terr := &TransportError{Op: "send", Method: "GET", URI: "http://x:1/a", Err: context.Canceled}
	perr := &ProtocolError{Status: 404, Label: FailureCodes[404]}
	wrapped := fmt.Errorf("users: %w", perr)

	if !IsTransport(terr) || IsProtocol(terr) {
		t.Error("transport error misclassified")
	}
	if !errors.Is(terr, context.Canceled) {
		t.Error("transport error should unwrap to its cause")
	}
	if !IsProtocol(wrapped) || IsTransport(wrapped) {
		t.Error("wrapped protocol error misclassified")
	}
	if StatusOf(wrapped) != 404 || StatusOf(terr) != 0 || StatusOf(nil) != 0 {
		t.Error("StatusOf mismatch")
	}
	if !IsNotFound(wrapped) || IsConflict(wrapped) {
		t.Error("IsNotFound/IsConflict mismatch")
	}
	if !IsUnauthorized(&ProtocolError{Status: 403}) {
		t.Error("403 should be unauthorized")
	}
}

func TestTables(t *testing.T) {
	for code := range SuccessCodes {
		if IsFailure(code) {
			t.Errorf("%d is in both tables", code)
		}
	}
	if len(FailureCodes) != 6 || len(SuccessCodes) != 2 {
		t.Errorf("unexpected table sizes %d/%d", len(FailureCodes), len(SuccessCodes))
	}
}
