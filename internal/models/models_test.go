package models

import (
	"encoding/json"
	"testing"
)

func TestIsCanceledStatus(t *testing.T) {
	canceled := []string{"canceled", "cancelled", "CANCELED", "Cancelled", " canceled "}
	for _, s := range canceled {
		if !IsCanceledStatus(s) {
			t.Errorf("expected %q to count as canceled", s)
		}
	}
	notCanceled := []string{"", "scheduled", "pending", "cancel", "done"}
	for _, s := range notCanceled {
		if IsCanceledStatus(s) {
			t.Errorf("expected %q not to count as canceled", s)
		}
	}
}

func TestSessionStateInFlight(t *testing.T) {
	inFlight := []SessionState{StateSubmitting, StateCanceling, StateUnsubscribing}
	for _, s := range inFlight {
		if !s.InFlight() {
			t.Errorf("expected %s to be in flight", s)
		}
	}
	settled := []SessionState{StateIdle, StateDateSelected, StateTimeSelected,
		StateConfirmationPending, StateSucceeded, StateCancelPending, StateUnsubscribed}
	for _, s := range settled {
		if s.InFlight() {
			t.Errorf("expected %s not to be in flight", s)
		}
	}
}

func TestAPIResponseHelpers(t *testing.T) {
	ok := Success(map[string]string{"id": "s-1"})
	if ok.Status != string(APIStatusOK) || ok.Message != "" || ok.Result == nil {
		t.Errorf("unexpected success response: %+v", ok)
	}

	withMsg := SuccessWithMessage("created", nil)
	if withMsg.Status != string(APIStatusOK) || withMsg.Message != "created" {
		t.Errorf("unexpected success-with-message response: %+v", withMsg)
	}

	errResp := Error("boom")
	if errResp.Status != string(APIStatusError) || errResp.Message != "boom" {
		t.Errorf("unexpected error response: %+v", errResp)
	}

	// Empty fields stay off the wire.
	data, err := json.Marshal(errResp)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"status":"error","message":"boom"}` {
		t.Errorf("unexpected JSON: %s", data)
	}
}
