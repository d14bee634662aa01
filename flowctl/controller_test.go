package flowctl

import (
	"testing"
	"time"
)

func TestRequestCreditAddsAllowance(t *testing.T) {
	c := NewController(UnitFrames, PolicyIgnore, 200*time.Millisecond)

	c.RequestCredit(5, UnitFrames, nil, time.Time{})

	if c.SndAllowed != 5 {
		t.Fatalf("SndAllowed = %d, want 5", c.SndAllowed)
	}
	if !c.CanSend() {
		t.Errorf("CanSend() = false, want true")
	}
}

func TestPauseClearsCredit(t *testing.T) {
	c := NewController(UnitFrames, PolicyIgnore, 200*time.Millisecond)
	c.RequestCredit(10, UnitFrames, nil, time.Time{})

	c.RequestCredit(PauseAmount, UnitFrames, nil, time.Time{})

	if c.SndAllowed != 0 {
		t.Fatalf("SndAllowed = %d after pause, want 0", c.SndAllowed)
	}
	if c.CanSend() {
		t.Errorf("CanSend() = true after pause, want false")
	}
}

func TestSpendBytesVsFrames(t *testing.T) {
	c := NewController(UnitBytes, PolicyIgnore, 0)
	c.SndAllowed = 1000
	c.Spend(128)
	if c.SndAllowed != 872 {
		t.Fatalf("SndAllowed = %d, want 872", c.SndAllowed)
	}

	c2 := NewController(UnitFrames, PolicyIgnore, 0)
	c2.SndAllowed = 3
	c2.Spend(9999)
	if c2.SndAllowed != 2 {
		t.Fatalf("SndAllowed = %d, want 2", c2.SndAllowed)
	}
}

func TestSequenceNormalAdvancesExpected(t *testing.T) {
	c := NewController(UnitFrames, PolicyIgnore, 0)

	seq := uint8(5)
	c.ExpReqIx = 5
	c.RequestCredit(1, UnitFrames, &seq, time.Now())

	if c.ExpReqIx != 6 {
		t.Fatalf("ExpReqIx = %d, want 6", c.ExpReqIx)
	}
	if c.DaqMissCnt != 0 {
		t.Errorf("DaqMissCnt = %d, want 0 for an in-order request", c.DaqMissCnt)
	}
}

func TestSequenceGapCountsMiss(t *testing.T) {
	c := NewController(UnitFrames, PolicyIgnore, 0)
	c.ExpReqIx = 5

	seq := uint8(8)
	c.RequestCredit(1, UnitFrames, &seq, time.Now())

	if c.DaqMissCnt != 3 {
		t.Fatalf("DaqMissCnt = %d, want 3", c.DaqMissCnt)
	}
	if c.ExpReqIx != 9 {
		t.Fatalf("ExpReqIx = %d, want 9", c.ExpReqIx)
	}
}

func TestSequenceWrapsModulo256(t *testing.T) {
	c := NewController(UnitFrames, PolicyIgnore, 0)
	c.ExpReqIx = 254

	seq := uint8(1) // wrapped past 255
	c.RequestCredit(1, UnitFrames, &seq, time.Now())

	if c.DaqMissCnt != 3 {
		t.Fatalf("DaqMissCnt = %d, want 3 (254->255->0->1)", c.DaqMissCnt)
	}
}

func TestTimedOutTransitionIncrementsRxDaqDelayed(t *testing.T) {
	c := NewController(UnitFrames, PolicyIgnore, 0)
	c.State = StateCredReturnTimedOut

	seq := uint8(0)
	c.RequestCredit(1, UnitFrames, &seq, time.Now())

	if c.RxDaqDelayed != 1 {
		t.Fatalf("RxDaqDelayed = %d, want 1", c.RxDaqDelayed)
	}
	if c.State != StateReadyAcceptCredit {
		t.Errorf("State = %v, want StateReadyAcceptCredit", c.State)
	}
	if !c.FirstInRow {
		t.Errorf("FirstInRow should be set on a fresh acceptance after timeout")
	}
}

func TestReplyHeaderMarksFirstInRow(t *testing.T) {
	c := NewController(UnitFrames, PolicyIgnore, 0)
	c.FirstInRow = true
	c.NxtRepIx = 7

	h := c.ReplyHeader()
	if h != 0x0107 {
		t.Fatalf("ReplyHeader() = %#x, want 0x0107", h)
	}

	h2 := c.ReplyHeader()
	if h2 != 8 {
		t.Fatalf("ReplyHeader() = %#x, want 8 (no FirstInRow flag)", h2)
	}
}

func TestPeriodicCheckIgnorePolicy(t *testing.T) {
	c := NewController(UnitFrames, PolicyIgnore, 10*time.Millisecond)
	c.LastDaqSent = time.Now().Add(-time.Second)

	actions := c.PeriodicCheck(time.Now())

	if !c.LastDaqSent.IsZero() {
		t.Errorf("PolicyIgnore should clear LastDaqSent")
	}
	if actions.AdjustSndAllowed != 0 || actions.ResendLast {
		t.Errorf("PolicyIgnore should not adjust credit or request a resend: %+v", actions)
	}
}

func TestPeriodicCheckRecreditPolicy(t *testing.T) {
	c := NewController(UnitFrames, PolicyRecredit, 10*time.Millisecond)
	c.SndAllowed = 0
	c.LastDaqSent = time.Now().Add(-time.Second)

	actions := c.PeriodicCheck(time.Now())

	if c.SndAllowed != 1 {
		t.Fatalf("SndAllowed = %d, want 1", c.SndAllowed)
	}
	if actions.AdjustSndAllowed != 1 {
		t.Errorf("AdjustSndAllowed = %d, want 1", actions.AdjustSndAllowed)
	}
	if !c.LastDaqSent.IsZero() {
		t.Errorf("PolicyRecredit should clear LastDaqSent after re-crediting")
	}
}

func TestPeriodicCheckResendPolicy(t *testing.T) {
	c := NewController(UnitFrames, PolicyResend, 10*time.Millisecond)
	c.SndAllowed = 0
	c.LastDaqSent = time.Now().Add(-time.Second)

	actions := c.PeriodicCheck(time.Now())

	if !actions.ResendLast {
		t.Fatalf("PolicyResend should request a resend")
	}
	if c.SndAllowed != 1 {
		t.Errorf("SndAllowed = %d, want 1", c.SndAllowed)
	}
}

func TestPeriodicCheckIsNoOpUnderByteUnit(t *testing.T) {
	c := NewController(UnitBytes, PolicyRecredit, 10*time.Millisecond)
	c.LastDaqSent = time.Now().Add(-time.Second)

	actions := c.PeriodicCheck(time.Now())

	if actions.AdjustSndAllowed != 0 {
		t.Errorf("PeriodicCheck should be a no-op under UnitBytes")
	}
}

// TestPeriodicCheckGivesUpAfterFourStaleWindows covers scenario S4:
// under the re-credit policy, the fourth consecutive timeout window
// without fresh credit abandons the policy, reports "Re-credit
// abandoned", zeroes last_daq_sent, and leaves rx_daq_timeout at 4.
func TestPeriodicCheckGivesUpAfterFourStaleWindows(t *testing.T) {
	c := NewController(UnitFrames, PolicyRecredit, 10*time.Millisecond)
	c.LastCreditRcv = time.Now().Add(-time.Hour)

	var actions Actions
	for i := 0; i < 4; i++ {
		if actions.GaveUp {
			t.Fatalf("gave up after only %d stale windows", i)
		}
		c.LastDaqSent = time.Now().Add(-time.Second)
		actions = c.PeriodicCheck(time.Now())
	}

	if !actions.GaveUp {
		t.Fatalf("after four stale windows the policy should give up, got %+v", actions)
	}
	if actions.Log != "Re-credit abandoned" {
		t.Errorf("Log = %q, want Re-credit abandoned", actions.Log)
	}
	if !c.LastDaqSent.IsZero() {
		t.Errorf("give-up should drop LastDaqSent")
	}
	if c.RxDaqTimeout != 4 {
		t.Errorf("RxDaqTimeout = %d, want 4", c.RxDaqTimeout)
	}
}

// TestFreshCreditResetsGiveUpWindow checks that a daq request arriving
// between timeouts restarts the four-window countdown.
func TestFreshCreditResetsGiveUpWindow(t *testing.T) {
	c := NewController(UnitFrames, PolicyRecredit, 10*time.Millisecond)
	c.LastCreditRcv = time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		c.LastDaqSent = time.Now().Add(-time.Second)
		c.PeriodicCheck(time.Now())
	}

	seq := uint8(0)
	c.RequestCredit(1, UnitFrames, &seq, time.Now())

	c.LastDaqSent = time.Now().Add(-time.Second)
	if actions := c.PeriodicCheck(time.Now()); actions.GaveUp {
		t.Fatalf("fresh credit should have reset the stale-window history")
	}
}

// TestByteCreditRow covers the scenario-S3 trajectory: a 0x1000-byte
// grant, three data frames totalling 2400 bytes, then a 0x800-byte
// top-up — snd_allowed runs 0 -> 4096 -> 1696 -> 3744 with two
// accepted requests and reply headers 0x0100, 0x0001, 0x0002.
func TestByteCreditRow(t *testing.T) {
	c := NewController(UnitBytes, PolicyIgnore, 200*time.Millisecond)

	seq := uint8(0)
	c.RequestCredit(0x1000, UnitBytes, &seq, time.Now())
	if c.SndAllowed != 4096 {
		t.Fatalf("SndAllowed = %d, want 4096", c.SndAllowed)
	}

	headers := []uint16{c.ReplyHeader()}
	c.Spend(800)
	headers = append(headers, c.ReplyHeader())
	c.Spend(800)
	headers = append(headers, c.ReplyHeader())
	c.Spend(800)

	if c.SndAllowed != 1696 {
		t.Fatalf("SndAllowed = %d after 2400 bytes, want 1696", c.SndAllowed)
	}

	seq = 1
	c.RequestCredit(0x800, UnitBytes, &seq, time.Now())
	if c.SndAllowed != 3744 {
		t.Fatalf("SndAllowed = %d, want 3744", c.SndAllowed)
	}
	if c.RxDaqCnt != 2 {
		t.Fatalf("RxDaqCnt = %d, want 2", c.RxDaqCnt)
	}

	want := []uint16{0x0100, 0x0001, 0x0002}
	for i, h := range headers {
		if h != want[i] {
			t.Fatalf("header %d = %#04x, want %#04x", i, h, want[i])
		}
	}
}

func TestNewControllerStartsFirstInRow(t *testing.T) {
	c := NewController(UnitFrames, PolicyIgnore, 0)

	if h := c.ReplyHeader(); h != 0x0100 {
		t.Fatalf("first ever reply header = %#x, want 0x0100", h)
	}
	if h := c.ReplyHeader(); h != 0x0001 {
		t.Fatalf("second reply header = %#x, want 0x0001", h)
	}
}

// TestMarkSentFeedsPeriodicCheck covers the pump-facing half of the
// timeout window: MarkSent records the send time PeriodicCheck later
// measures against.
func TestMarkSentFeedsPeriodicCheck(t *testing.T) {
	c := NewController(UnitFrames, PolicyIgnore, 10*time.Millisecond)

	sentAt := time.Now()
	c.MarkSent(sentAt)
	if !c.LastDaqSent.Equal(sentAt) {
		t.Fatalf("LastDaqSent = %v, want %v", c.LastDaqSent, sentAt)
	}

	if actions := c.PeriodicCheck(sentAt); actions.AdjustSndAllowed != 0 {
		t.Fatalf("PeriodicCheck should be a no-op before cred_wait_time elapses")
	}

	c.PeriodicCheck(sentAt.Add(time.Second))
	if !c.LastDaqSent.IsZero() {
		t.Fatalf("PolicyIgnore should clear LastDaqSent once the window elapses")
	}
}
