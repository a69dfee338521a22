package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/duskpool/core/pkg/errs"
)

func TestHappyPathLifecycle(t *testing.T) {
	c := NewCoordinator(nil)
	now := time.Now()
	deadline := now.Add(time.Hour)

	r := c.Register("m1", "CASSET", "buyer", "seller", now, deadline)
	require.Equal(t, StatusMatched, r.Status)

	require.NoError(t, c.TransitionProving("m1"))
	require.NoError(t, c.TransitionProofGenerated("m1", "0xnullifier", []byte("proof"), []byte("signals")))

	got, _ := c.Get("m1")
	require.Equal(t, StatusAwaitingSignatures, got.Status)

	buyerSigned, sellerSigned, err := c.SubmitSignature("m1", RoleBuyer, []byte("sigA"))
	require.NoError(t, err)
	require.True(t, buyerSigned)
	require.False(t, sellerSigned)

	got, _ = c.Get("m1")
	require.Equal(t, StatusPartiallySigned, got.Status)

	buyerSigned, sellerSigned, err = c.SubmitSignature("m1", RoleSeller, []byte("sigB"))
	require.NoError(t, err)
	require.True(t, buyerSigned)
	require.True(t, sellerSigned)

	got, _ = c.Get("m1")
	require.Equal(t, StatusSignaturesComplete, got.Status)

	packet, err := c.BuildPacket("m1")
	require.NoError(t, err)
	require.Equal(t, "0xnullifier", packet.NullifierHash)

	got, _ = c.Get("m1")
	require.Equal(t, StatusQueuedOnChain, got.Status)

	require.NoError(t, c.OnConfirmed("m1", "0xdeadbeef"))
	got, _ = c.Get("m1")
	require.Equal(t, StatusConfirmed, got.Status)
	require.True(t, got.Status.IsTerminal())
}

func TestSignatureSubmissionIsIdempotent(t *testing.T) {
	c := NewCoordinator(nil)
	now := time.Now()
	c.Register("m1", "CASSET", "buyer", "seller", now, now.Add(time.Hour))
	require.NoError(t, c.TransitionProving("m1"))
	require.NoError(t, c.TransitionProofGenerated("m1", "0xn", nil, nil))

	_, _, err := c.SubmitSignature("m1", RoleBuyer, []byte("sig1"))
	require.NoError(t, err)
	_, _, err = c.SubmitSignature("m1", RoleBuyer, []byte("sig2-should-be-ignored"))
	require.NoError(t, err)

	got, _ := c.Get("m1")
	require.Equal(t, []byte("sig1"), got.BuyerSignature)
}

func TestProofFailureIsTerminal(t *testing.T) {
	c := NewCoordinator(nil)
	now := time.Now()
	c.Register("m1", "CASSET", "buyer", "seller", now, now.Add(time.Hour))
	require.NoError(t, c.TransitionProving("m1"))
	require.NoError(t, c.TransitionProofFailed("m1", "commitment mismatch"))

	got, _ := c.Get("m1")
	require.Equal(t, StatusFailed, got.Status)
	require.True(t, got.Status.IsTerminal())
	require.Equal(t, string(errs.ProofFailed), got.ErrorKind)
}

func TestSignatureTimeoutTransitionsToFailed(t *testing.T) {
	c := NewCoordinator(nil)
	now := time.Now()
	past := now.Add(-time.Minute)
	c.Register("m1", "CASSET", "buyer", "seller", past, past.Add(time.Second))
	require.NoError(t, c.TransitionProving("m1"))
	require.NoError(t, c.TransitionProofGenerated("m1", "0xn", nil, nil))

	timedOut, err := c.CheckSignatureTimeout("m1", now)
	require.NoError(t, err)
	require.True(t, timedOut)

	got, _ := c.Get("m1")
	require.Equal(t, StatusFailed, got.Status)
	require.Equal(t, string(errs.SignatureTimeout), got.ErrorKind)
}

func TestTransientOnChainErrorRetriesWithBackoff(t *testing.T) {
	c := NewCoordinator(nil)
	now := time.Now()
	c.Register("m1", "CASSET", "buyer", "seller", now, now.Add(time.Hour))
	require.NoError(t, c.TransitionProving("m1"))
	require.NoError(t, c.TransitionProofGenerated("m1", "0xn", nil, nil))
	_, _, err := c.SubmitSignature("m1", RoleBuyer, []byte("a"))
	require.NoError(t, err)
	_, _, err = c.SubmitSignature("m1", RoleSeller, []byte("b"))
	require.NoError(t, err)
	_, err = c.BuildPacket("m1")
	require.NoError(t, err)

	backoff, retry, err := c.OnFailed("m1", errs.OnChainTransient, "timeout talking to sink")
	require.NoError(t, err)
	require.True(t, retry)
	require.Equal(t, time.Second, backoff)

	backoff2, retry2, err := c.OnFailed("m1", errs.OnChainTransient, "timeout talking to sink")
	require.NoError(t, err)
	require.True(t, retry2)
	require.Equal(t, 2*time.Second, backoff2)
}

func TestTransientErrorBecomesTerminalAfterRetryBudget(t *testing.T) {
	c := NewCoordinator(nil)
	now := time.Now()
	c.Register("m1", "CASSET", "buyer", "seller", now, now.Add(time.Hour))
	require.NoError(t, c.TransitionProving("m1"))
	require.NoError(t, c.TransitionProofGenerated("m1", "0xn", nil, nil))
	_, _, _ = c.SubmitSignature("m1", RoleBuyer, []byte("a"))
	_, _, _ = c.SubmitSignature("m1", RoleSeller, []byte("b"))
	_, _ = c.BuildPacket("m1")

	for i := 0; i < retryMaxAttempts; i++ {
		_, retry, err := c.OnFailed("m1", errs.OnChainTransient, "still failing")
		require.NoError(t, err)
		require.True(t, retry)
	}

	_, retry, err := c.OnFailed("m1", errs.OnChainTransient, "still failing")
	require.NoError(t, err)
	require.False(t, retry)

	got, _ := c.Get("m1")
	require.Equal(t, StatusFailed, got.Status)
	require.Equal(t, string(errs.OnChainTerminal), got.ErrorKind)
}

func TestOnChainTerminalErrorFailsImmediately(t *testing.T) {
	c := NewCoordinator(nil)
	now := time.Now()
	c.Register("m1", "CASSET", "buyer", "seller", now, now.Add(time.Hour))
	require.NoError(t, c.TransitionProving("m1"))
	require.NoError(t, c.TransitionProofGenerated("m1", "0xn", nil, nil))
	_, _, _ = c.SubmitSignature("m1", RoleBuyer, []byte("a"))
	_, _, _ = c.SubmitSignature("m1", RoleSeller, []byte("b"))
	_, _ = c.BuildPacket("m1")

	_, retry, err := c.OnFailed("m1", errs.OnChainTerminal, "nullifier already spent")
	require.NoError(t, err)
	require.False(t, retry)

	got, _ := c.Get("m1")
	require.Equal(t, StatusFailed, got.Status)
}

func TestForTraderFiltersByParticipant(t *testing.T) {
	c := NewCoordinator(nil)
	now := time.Now()
	c.Register("m1", "CASSET", "alice", "bob", now, now.Add(time.Hour))
	c.Register("m2", "CASSET", "carol", "dave", now, now.Add(time.Hour))

	records := c.ForTrader("alice")
	require.Len(t, records, 1)
	require.Equal(t, "m1", records[0].MatchID)
}
